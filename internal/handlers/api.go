package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dataco-dashboard/internal/engine"
	"dataco-dashboard/internal/errors"
	"dataco-dashboard/internal/export"
	"dataco-dashboard/internal/observability"
	"dataco-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) ok(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheControl,
	})
}

// parseQuery reads year and region from the URL. A missing year selects
// the configured default.
func parseQuery(r *http.Request, def services.Query) (services.Query, error) {
	q := services.Query{Year: def.Year, Region: r.URL.Query().Get("region")}
	year, err := intParam(r, "year", def.Year)
	if err != nil {
		return q, err
	}
	q.Year = year
	return q, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e := errors.Validation(name + " must be an integer")
		e.Details = name + "=" + raw
		return 0, e
	}
	return v, nil
}

func stringParam(r *http.Request, name, def string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(name)); v != "" {
		return v
	}
	return def
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, h.analytics.DefaultQuery())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	d, err := h.analytics.Dashboard(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, d)
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, h.analytics.DefaultQuery())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	kpis, err := h.analytics.KPIs(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, kpis)
}

// HandleMetric serves the per-region table of one metric. With a region
// parameter it returns only that region's KPI.
func (h *APIHandlers) HandleMetric(w http.ResponseWriter, r *http.Request) {
	metric := engine.Metric(r.PathValue("metric"))
	q, err := parseQuery(r, h.analytics.DefaultQuery())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if q.Region != "" {
		kpi, err := h.analytics.KPI(r.Context(), q, metric)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.ok(w, kpi)
		return
	}

	table, err := h.analytics.ScopeTable(r.Context(), q.Year, metric)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, map[string]any{
		"metric": metric,
		"title":  metric.Title(),
		"year":   q.Year,
		"scopes": table,
	})
}

func (h *APIHandlers) HandleRankings(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, h.analytics.DefaultQuery())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := intParam(r, "n", 5)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	spec := engine.RankSpec{
		Dimension: engine.Dimension(stringParam(r, "dimension", string(engine.DimCategory))),
		Measure:   engine.Measure(stringParam(r, "measure", string(engine.MeasureSales))),
		N:         n,
		Direction: engine.Direction(stringParam(r, "direction", string(engine.Top))),
		Scale:     engine.Scale(stringParam(r, "scale", string(engine.ScaleCurrency))),
	}

	rows, err := h.analytics.Rank(r.Context(), q, spec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, rows)
}

func (h *APIHandlers) HandleDailySales(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, h.analytics.DefaultQuery())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var fill engine.FillPolicy
	if raw := r.URL.Query().Get("fill"); raw != "" {
		if fill, err = engine.ParseFillPolicy(raw); err != nil {
			h.fail(w, r, errors.ValidationWrap(err, "fill must be none or zero"))
			return
		}
	}

	series, err := h.analytics.DailySales(r.Context(), q, fill)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, series)
}

func (h *APIHandlers) HandleRelationship(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year", h.analytics.DefaultQuery().Year)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rel, err := h.analytics.Relationship(r.Context(), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, rel)
}

func (h *APIHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	regions, err := h.analytics.Regions(year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, regions)
}

func (h *APIHandlers) HandleYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.analytics.Years()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, years)
}

// HandleExport serves the dashboard for the selection as an XLSX download.
func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, h.analytics.DefaultQuery())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	d, err := h.analytics.Dashboard(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, d); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Failed to build workbook"))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(d)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		observability.LoggerFrom(r.Context(), h.logger).Warn("export write failed", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if _, err := h.analytics.Years(); err != nil {
		status = "loading"
	}

	errors.WriteSuccess(w, map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
