package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"dataco-dashboard/internal/dataset"
	"dataco-dashboard/internal/engine"
	"dataco-dashboard/internal/errors"
	"dataco-dashboard/internal/models"
	"dataco-dashboard/internal/observability"
	"dataco-dashboard/internal/palette"
)

const (
	defaultMinYear       = 2015
	defaultMaxYear       = 2017
	defaultTopN          = 5
	defaultMaxConcurrent = 8
	defaultAcquireWait   = 2 * time.Second
)

// Query selects one dashboard view. An empty Region means all regions.
type Query struct {
	Year   int    `json:"year" validate:"required"`
	Region string `json:"region" validate:"required"`
}

type Analytics struct {
	mu    sync.RWMutex
	table *dataset.Table

	logger       *slog.Logger
	formatter    engine.Formatter
	palette      palette.Palette
	choropleth   func(year int) string
	minYear      int
	maxYear      int
	defaultYear  int
	topN         int
	categoryTopN int
	fill         engine.FillPolicy
	loadOpts     dataset.Options

	sem         *semaphore.Weighted
	acquireWait time.Duration
	validate    *validator.Validate
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

func WithFormatter(f engine.Formatter) Option {
	return func(a *Analytics) { a.formatter = f }
}

func WithPalette(p palette.Palette) Option {
	return func(a *Analytics) { a.palette = p }
}

// WithChoropleth sets the year to map-embed URL lookup.
func WithChoropleth(lookup func(year int) string) Option {
	return func(a *Analytics) { a.choropleth = lookup }
}

// WithYearRange bounds the selectable years. defaultYear is the initial
// selection; zero means maxYear.
func WithYearRange(minYear, maxYear, defaultYear int) Option {
	return func(a *Analytics) {
		a.minYear, a.maxYear, a.defaultYear = minYear, maxYear, defaultYear
	}
}

// WithTopN sets how many regions and categories the dashboard rankings keep.
func WithTopN(regions, categories int) Option {
	return func(a *Analytics) { a.topN, a.categoryTopN = regions, categories }
}

func WithDailyFill(fill engine.FillPolicy) Option {
	return func(a *Analytics) { a.fill = fill }
}

// WithMaxConcurrent bounds concurrent computations. Callers that cannot get
// a slot within wait receive a SERVICE_BUSY error.
func WithMaxConcurrent(n int64, wait time.Duration) Option {
	return func(a *Analytics) {
		a.sem = semaphore.NewWeighted(n)
		a.acquireWait = wait
	}
}

func WithLoadOptions(opts dataset.Options) Option {
	return func(a *Analytics) { a.loadOpts = opts }
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		logger:       slog.Default(),
		formatter:    engine.DefaultFormatter(),
		palette:      palette.Default(),
		choropleth:   func(int) string { return "" },
		minYear:      defaultMinYear,
		maxYear:      defaultMaxYear,
		topN:         defaultTopN,
		categoryTopN: defaultTopN,
		fill:         engine.FillNone,
		sem:          semaphore.NewWeighted(defaultMaxConcurrent),
		acquireWait:  defaultAcquireWait,
		validate:     validator.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.defaultYear == 0 {
		a.defaultYear = a.maxYear
	}
	if a.loadOpts.Logger == nil {
		a.loadOpts.Logger = a.logger
	}
	return a
}

// SetData replaces the snapshot with an in-memory table.
func (a *Analytics) SetData(orders []models.Order) {
	t := dataset.NewTable(orders)
	a.mu.Lock()
	a.table = t
	a.mu.Unlock()
}

// LoadFromFile loads a CSV or XLSX dataset and swaps it in. The previous
// snapshot stays in place if loading fails.
func (a *Analytics) LoadFromFile(ctx context.Context, path string) error {
	t, err := dataset.Load(ctx, path, a.loadOpts)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	a.mu.Lock()
	a.table = t
	a.mu.Unlock()
	return nil
}

func (a *Analytics) snapshot() (*dataset.Table, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.table == nil {
		return nil, errors.ServiceUnavailable("Dataset not loaded")
	}
	return a.table, nil
}

func (a *Analytics) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.acquireWait)
	defer cancel()
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.ServiceBusy("Too many concurrent dashboard computations")
	}
	return func() { a.sem.Release(1) }, nil
}

func (a *Analytics) checkYear(year int) error {
	rule := fmt.Sprintf("gte=%d,lte=%d", a.minYear, a.maxYear)
	if err := a.validate.Var(year, rule); err != nil {
		e := errors.ValidationWrap(err, fmt.Sprintf("year must be between %d and %d", a.minYear, a.maxYear))
		e.Details = "year=" + strconv.Itoa(year)
		return e
	}
	return nil
}

// checkQuery normalizes the region and validates q against the bounds and
// the regions of t.
func (a *Analytics) checkQuery(t *dataset.Table, q Query) (Query, error) {
	q.Region = engine.NormalizeScope(q.Region)
	if err := a.validate.Struct(q); err != nil {
		return q, errors.ValidationWrap(err, "Invalid query")
	}
	if err := a.checkYear(q.Year); err != nil {
		return q, err
	}
	if q.Region != engine.AllRegions && !t.HasRegion(q.Region) {
		e := errors.Validation(fmt.Sprintf("unknown region %q", q.Region))
		e.Details = "region must be one of the dataset regions or " + engine.AllRegions
		return q, e
	}
	return q, nil
}

// prepare takes a computation slot and returns the year rows for a
// validated query. Callers must call release.
func (a *Analytics) prepare(ctx context.Context, q Query) (rows []models.Order, nq Query, release func(), err error) {
	t, err := a.snapshot()
	if err != nil {
		return nil, q, nil, err
	}
	if nq, err = a.checkQuery(t, q); err != nil {
		return nil, q, nil, err
	}
	if release, err = a.acquire(ctx); err != nil {
		return nil, q, nil, err
	}
	return engine.FilterYear(t.Orders(), nq.Year), nq, release, nil
}

func (a *Analytics) regionRanking(measure engine.Measure, scale engine.Scale) engine.RankSpec {
	return engine.RankSpec{
		Dimension: engine.DimMarketRegion,
		Measure:   measure,
		N:         a.topN,
		Direction: engine.Top,
		Scale:     scale,
	}
}

func (a *Analytics) categoryRanking(region string, dir engine.Direction) engine.RankSpec {
	return engine.RankSpec{
		Dimension: engine.DimCategory,
		Measure:   engine.MeasureSales,
		N:         a.categoryTopN,
		Direction: dir,
		Scale:     engine.ScaleCurrency,
		Region:    region,
	}
}

// runSections runs each section on its own goroutine. A section that has not
// started by the time ctx is done or another section fails is skipped.
func runSections(ctx context.Context, sections ...func() error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, compute := range sections {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return compute()
		})
	}
	return g.Wait()
}

// Dashboard computes every section of the dashboard for q. Sections run
// concurrently over the same read-only year rows.
func (a *Analytics) Dashboard(ctx context.Context, q Query) (*models.Dashboard, error) {
	ctx, span := observability.StartSpan(ctx, "analytics.dashboard")
	defer span.Finish()

	rows, q, release, err := a.prepare(ctx, q)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	defer release()

	span.SetTag("year", strconv.Itoa(q.Year))
	span.SetTag("region", q.Region)

	d := &models.Dashboard{
		Year:          q.Year,
		Region:        q.Region,
		ChoroplethURL: a.choropleth(q.Year),
		Rows:          len(engine.FilterRegion(rows, q.Region)),
	}

	rank := func(dst *[]models.RankingRow, spec engine.RankSpec) func() error {
		return func() error {
			out, err := engine.Rank(rows, spec, a.formatter, a.palette)
			if err != nil {
				return fmt.Errorf("rank %s by %s: %w", spec.Dimension, spec.Measure, err)
			}
			*dst = out
			return nil
		}
	}

	err = runSections(ctx,
		func() error {
			d.KPIs = engine.ComputeKPIs(rows, q.Region, a.formatter)
			return nil
		},
		func() error {
			d.OTIFByRegion = engine.ScopeValues(rows, engine.MetricOTIF)
			return nil
		},
		rank(&d.TopRegionsBySales, a.regionRanking(engine.MeasureSales, engine.ScaleMillions)),
		rank(&d.TopRegionsByOrders, a.regionRanking(engine.MeasureQuantity, engine.ScaleQuantity)),
		rank(&d.TopCategories, a.categoryRanking(q.Region, engine.Top)),
		rank(&d.BottomCategories, a.categoryRanking(q.Region, engine.Bottom)),
		func() error {
			d.DailySales = engine.DailySales(rows, q.Region, a.fill)
			return nil
		},
		func() error {
			d.Relationship = engine.RegionRelationship(rows)
			return nil
		},
	)
	if err != nil {
		span.SetError(err)
		return nil, errors.From(err)
	}

	observability.LoggerFrom(ctx, a.logger).Debug("dashboard computed",
		"year", q.Year,
		"region", q.Region,
		"rows", d.Rows,
	)
	return d, nil
}

// KPIs returns the five headline figures for q.
func (a *Analytics) KPIs(ctx context.Context, q Query) (models.KPIBundle, error) {
	rows, q, release, err := a.prepare(ctx, q)
	if err != nil {
		return models.KPIBundle{}, err
	}
	defer release()
	return engine.ComputeKPIs(rows, q.Region, a.formatter), nil
}

// KPI returns a single metric for q, or a NO_DATA error when the region has
// no orders in the year.
func (a *Analytics) KPI(ctx context.Context, q Query, m engine.Metric) (models.KPI, error) {
	if !m.Valid() {
		return models.KPI{}, errors.Validation(fmt.Sprintf("unknown metric %q", m))
	}
	rows, q, release, err := a.prepare(ctx, q)
	if err != nil {
		return models.KPI{}, err
	}
	defer release()

	if _, err := engine.MetricValue(rows, m, q.Region); err != nil {
		return models.KPI{}, errors.From(err)
	}
	for _, k := range engine.ComputeKPIs(rows, q.Region, a.formatter).All() {
		if k.Name == m.Title() {
			return k, nil
		}
	}
	return models.KPI{}, errors.Internal("metric missing from bundle")
}

// ScopeTable returns the per-region table of m for year.
func (a *Analytics) ScopeTable(ctx context.Context, year int, m engine.Metric) ([]models.ScopeValue, error) {
	if !m.Valid() {
		return nil, errors.Validation(fmt.Sprintf("unknown metric %q", m))
	}
	rows, _, release, err := a.prepare(ctx, Query{Year: year})
	if err != nil {
		return nil, err
	}
	defer release()
	return engine.ScopeValues(rows, m), nil
}

// Rank runs an arbitrary ranking over the year rows. The query region
// narrows the rows unless spec.Region is already set.
func (a *Analytics) Rank(ctx context.Context, q Query, spec engine.RankSpec) ([]models.RankingRow, error) {
	if err := spec.Validate(); err != nil {
		return nil, errors.ValidationWrap(err, "Invalid ranking")
	}
	rows, q, release, err := a.prepare(ctx, q)
	if err != nil {
		return nil, err
	}
	defer release()

	if spec.Region == "" {
		spec.Region = q.Region
	}
	out, err := engine.Rank(rows, spec, a.formatter, a.palette)
	if err != nil {
		return nil, errors.From(err)
	}
	return out, nil
}

// DailySales returns the daily series for q. An empty fill uses the
// configured policy.
func (a *Analytics) DailySales(ctx context.Context, q Query, fill engine.FillPolicy) ([]models.SeriesPoint, error) {
	if fill == "" {
		fill = a.fill
	}
	rows, q, release, err := a.prepare(ctx, q)
	if err != nil {
		return nil, err
	}
	defer release()
	return engine.DailySales(rows, q.Region, fill), nil
}

func (a *Analytics) Relationship(ctx context.Context, year int) ([]models.RegionAggregate, error) {
	rows, _, release, err := a.prepare(ctx, Query{Year: year})
	if err != nil {
		return nil, err
	}
	defer release()
	return engine.RegionRelationship(rows), nil
}

// Years returns the dataset years inside the configured range.
func (a *Analytics) Years() ([]int, error) {
	t, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(t.Years(), func(y int) bool {
		return y < a.minYear || y > a.maxYear
	}), nil
}

// Regions returns the region selector options for year, AllRegions first.
// A zero year lists every region in the dataset.
func (a *Analytics) Regions(year int) ([]string, error) {
	t, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	var regions []string
	if year == 0 {
		regions = t.Regions()
	} else {
		if err := a.checkYear(year); err != nil {
			return nil, err
		}
		regions = t.RegionsForYear(year)
	}
	return append([]string{engine.AllRegions}, regions...), nil
}

// ChoroplethURL returns the map embed URL for year.
func (a *Analytics) ChoroplethURL(year int) string {
	return a.choropleth(year)
}

func (a *Analytics) DefaultQuery() Query {
	return Query{Year: a.defaultYear, Region: engine.AllRegions}
}

// Stats reports the loaded snapshot for monitoring.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	t := a.table
	a.mu.RUnlock()

	if t == nil {
		return map[string]any{"loaded": false}
	}
	return map[string]any{
		"loaded":       true,
		"record_count": t.Len(),
		"skipped_rows": t.Skipped(),
		"source":       t.Source(),
		"loaded_at":    t.LoadedAt(),
		"years":        t.Years(),
		"regions":      len(t.Regions()),
		"markets":      len(t.Markets()),
		"categories":   len(t.Categories()),
	}
}
