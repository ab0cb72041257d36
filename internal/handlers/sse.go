package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"dataco-dashboard/internal/engine"
	"dataco-dashboard/internal/errors"
	"dataco-dashboard/internal/models"
	"dataco-dashboard/internal/observability"
	"dataco-dashboard/internal/services"
	"dataco-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// selection is the client signal state driving the dashboard.
type selection struct {
	Year   yearSignal `json:"year"`
	Region string     `json:"region"`
}

// yearSignal accepts a year sent as a JSON number or, from a bound select,
// as a string.
type yearSignal int

func (y *yearSignal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*y = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("year signal %s: %w", b, err)
	}
	*y = yearSignal(v)
	return nil
}

func (h *SSEHandlers) readSelection(r *http.Request) (services.Query, error) {
	q := h.analytics.DefaultQuery()
	var sel selection
	if err := datastar.ReadSignals(r, &sel); err != nil {
		return q, errors.ValidationWrap(err, "Invalid signals")
	}
	if sel.Year != 0 {
		q.Year = int(sel.Year)
	}
	if sel.Region != "" {
		q.Region = sel.Region
	}
	return q, nil
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// patchError replaces the error banner with the client-facing message.
func (h *SSEHandlers) patchError(sse *datastar.ServerSentEventGenerator, r *http.Request, err error) {
	appErr := errors.From(err)
	observability.LoggerFrom(r.Context(), h.logger).Warn("sse request failed",
		"error_code", appErr.Code,
		"error", err,
	)
	html, renderErr := render("error", appErr.Message)
	if renderErr != nil {
		h.logger.Error("render error banner", "error", renderErr)
		return
	}
	sse.PatchElements(html)
}

func (h *SSEHandlers) renderDashboard(d *models.Dashboard) ([]string, error) {
	kpis, err := render("kpis", d.KPIs.All())
	if err != nil {
		return nil, err
	}

	scope := d.Region
	rankings, err := render("rankings", []rankingPanel{
		{Title: "Top Regions by Total Sales", Label: "Region", Rows: d.TopRegionsBySales},
		{Title: "Top Regions by Total Order", Label: "Region", Rows: d.TopRegionsByOrders},
		{Title: "Top Categories in " + scope, Label: "Category", Rows: d.TopCategories},
		{Title: "Bottom Categories in " + scope, Label: "Category", Rows: d.BottomCategories},
	})
	if err != nil {
		return nil, err
	}

	otif, err := render("otif", d.OTIFByRegion)
	if err != nil {
		return nil, err
	}

	mapFrame, err := render("map", d.ChoroplethURL)
	if err != nil {
		return nil, err
	}

	banner, err := render("error", "")
	if err != nil {
		return nil, err
	}
	return []string{kpis, rankings, otif, mapFrame, banner}, nil
}

// HandleDashboard recomputes the dashboard for the year and region signals
// and patches the KPI cards, ranking tables and chart signals.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	q, readErr := h.readSelection(r)
	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		h.patchError(sse, r, readErr)
		return
	}

	d, err := h.analytics.Dashboard(r.Context(), q)
	if err != nil {
		h.patchError(sse, r, err)
		return
	}

	parts, err := h.renderDashboard(d)
	if err != nil {
		h.logger.Error("render dashboard fragments", "error", err)
		return
	}
	for _, html := range parts {
		sse.PatchElements(html)
	}

	signals, err := json.Marshal(map[string]any{
		"year":   d.Year,
		"region": d.Region,
		"charts": map[string]any{
			"dailySales":   d.DailySales,
			"relationship": d.Relationship,
			"regionSales":  d.TopRegionsBySales,
			"regionOrders": d.TopRegionsByOrders,
		},
	})
	if err != nil {
		h.logger.Error("marshal dashboard signals", "error", err)
		return
	}
	sse.PatchSignals(signals)

	flush(w)
}

// HandleRegions patches the region selector with the regions of the
// selected year.
func (h *SSEHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	q, readErr := h.readSelection(r)
	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		h.patchError(sse, r, readErr)
		return
	}

	regions, err := h.analytics.Regions(q.Year)
	if err != nil {
		h.patchError(sse, r, err)
		return
	}

	selected := q.Region
	if !slices.Contains(regions, selected) {
		selected = engine.AllRegions
	}

	var buf strings.Builder
	if err := templates.RegionSelect(regions, selected).Render(r.Context(), &buf); err != nil {
		h.logger.Error("render region selector", "error", err)
		return
	}
	sse.PatchElements(buf.String())
	if selected != q.Region {
		signals, err := json.Marshal(map[string]string{"region": selected})
		if err != nil {
			h.logger.Error("marshal region signal", "error", err)
			return
		}
		sse.PatchSignals(signals)
	}

	flush(w)
}
