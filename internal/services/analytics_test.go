package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataco-dashboard/internal/engine"
	"dataco-dashboard/internal/errors"
	"dataco-dashboard/internal/models"
)

func order(year int, region, market, category string, sales float64, onTime bool) models.Order {
	o := models.Order{
		Year:          year,
		Date:          time.Date(year, 2, 1, 0, 0, 0, 0, time.UTC),
		Region:        region,
		Market:        market,
		Category:      category,
		Sales:         sales,
		Quantity:      2,
		Profit:        sales / 10,
		DaysReal:      3,
		DaysScheduled: 4,
	}
	if !onTime {
		o.DaysDifference = -1
	}
	return o
}

// testOrders: Western Europe has 10 orders in 2017 (8 on time), Oceania has
// 5 (1 on time). South America only appears in 2016.
func testOrders() []models.Order {
	var rows []models.Order
	for i := range 10 {
		rows = append(rows, order(2017, "Western Europe", "Europe", "Cleats", 100, i < 8))
	}
	for i := range 5 {
		rows = append(rows, order(2017, "Oceania", "Pacific Asia", "Fishing", 50, i < 1))
	}
	rows = append(rows, order(2016, "South America", "LATAM", "Toys", 70, true))
	return rows
}

func newLoaded(t testing.TB, opts ...Option) *Analytics {
	t.Helper()
	a := NewAnalytics(opts...)
	a.SetData(testOrders())
	return a
}

func requireCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, errors.From(err).Code, err.Error())
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics()
	require.NotNil(t, a)
	assert.NotNil(t, a.logger)
	assert.NotNil(t, a.sem)
	assert.Equal(t, Query{Year: 2017, Region: engine.AllRegions}, a.DefaultQuery())

	a = NewAnalytics(WithYearRange(2015, 2017, 2016))
	assert.Equal(t, 2016, a.DefaultQuery().Year)
}

func TestAnalytics_NotLoaded(t *testing.T) {
	a := NewAnalytics()

	_, err := a.Dashboard(context.Background(), Query{Year: 2017})
	requireCode(t, err, errors.CodeServiceUnavail)

	_, err = a.Years()
	requireCode(t, err, errors.CodeServiceUnavail)

	assert.Equal(t, false, a.Stats()["loaded"])
}

func TestAnalytics_Dashboard(t *testing.T) {
	a := newLoaded(t, WithChoropleth(func(year int) string {
		return map[int]string{2017: "https://maps.test/2017"}[year]
	}))

	d, err := a.Dashboard(context.Background(), Query{Year: 2017})
	require.NoError(t, err)

	assert.Equal(t, engine.AllRegions, d.Region)
	assert.Equal(t, 15, d.Rows)
	assert.Equal(t, "https://maps.test/2017", d.ChoroplethURL)

	assert.Equal(t, "60.00 %", d.KPIs.OTIFRate.Display)
	assert.Equal(t, "30", d.KPIs.TotalOrders.Display)
	assert.Equal(t, "$1,250.00", d.KPIs.TotalSales.Display)
	assert.Equal(t, "$125.00", d.KPIs.TotalProfit.Display)

	require.Len(t, d.OTIFByRegion, 3)
	assert.Equal(t, models.ScopeValue{Scope: "Oceania", Value: 20, Rows: 5}, d.OTIFByRegion[0])
	assert.Equal(t, models.ScopeValue{Scope: engine.AllRegions, Value: 60, Rows: 15}, d.OTIFByRegion[2])

	require.Len(t, d.TopRegionsBySales, 2)
	assert.Equal(t, "Western Europe", d.TopRegionsBySales[0].Group)
	assert.Equal(t, "$0.00M", d.TopRegionsBySales[0].Label)
	assert.Equal(t, "20", d.TopRegionsByOrders[0].Label)

	assert.Equal(t, "Cleats", d.TopCategories[0].Group)
	assert.Equal(t, "$1,000.00", d.TopCategories[0].Label)
	assert.Len(t, d.BottomCategories, 2)
	assert.Len(t, d.DailySales, 1)
	assert.Len(t, d.Relationship, 2)
}

func TestAnalytics_Dashboard_RegionScope(t *testing.T) {
	a := newLoaded(t)

	d, err := a.Dashboard(context.Background(), Query{Year: 2017, Region: "Western Europe"})
	require.NoError(t, err)

	assert.Equal(t, "80.00 %", d.KPIs.OTIFRate.Display)
	assert.Equal(t, 10, d.Rows)
	require.Len(t, d.TopCategories, 1)
	assert.Equal(t, "Cleats", d.TopCategories[0].Group)
	// Region rankings and the scatter stay year-wide.
	assert.Len(t, d.TopRegionsBySales, 2)
	assert.Len(t, d.Relationship, 2)
}

func TestAnalytics_Dashboard_RegionAbsentForYear(t *testing.T) {
	a := newLoaded(t)

	d, err := a.Dashboard(context.Background(), Query{Year: 2017, Region: "South America"})
	require.NoError(t, err)

	for _, k := range d.KPIs.All() {
		assert.False(t, k.Available)
		assert.Equal(t, "N/A", k.Display)
	}
	assert.Empty(t, d.TopCategories)
	assert.Empty(t, d.BottomCategories)
	assert.Empty(t, d.DailySales)
	assert.NotEmpty(t, d.TopRegionsBySales)
}

func TestAnalytics_Dashboard_InvalidQuery(t *testing.T) {
	a := newLoaded(t)

	tests := []struct {
		name string
		q    Query
	}{
		{"year below range", Query{Year: 2014}},
		{"year above range", Query{Year: 2018}},
		{"missing year", Query{}},
		{"unknown region", Query{Year: 2017, Region: "Atlantis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Dashboard(context.Background(), tt.q)
			requireCode(t, err, errors.CodeValidation)
		})
	}
}

func TestAnalytics_Dashboard_Busy(t *testing.T) {
	a := newLoaded(t, WithMaxConcurrent(1, 10*time.Millisecond))
	require.NoError(t, a.sem.Acquire(context.Background(), 1))

	_, err := a.Dashboard(context.Background(), Query{Year: 2017})
	requireCode(t, err, errors.CodeServiceBusy)

	a.sem.Release(1)
	_, err = a.Dashboard(context.Background(), Query{Year: 2017})
	assert.NoError(t, err)
}

func TestAnalytics_Dashboard_Cancelled(t *testing.T) {
	a := newLoaded(t, WithMaxConcurrent(1, 10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Dashboard(ctx, Query{Year: 2017})
	require.ErrorIs(t, err, context.Canceled)
	requireCode(t, err, errors.CodeServiceUnavail)

	assert.True(t, a.sem.TryAcquire(1), "cancelled request must not hold the gate")
	a.sem.Release(1)
}

func TestRunSections(t *testing.T) {
	boom := stderrors.New("boom")

	t.Run("runs every section", func(t *testing.T) {
		var ran atomic.Int32
		count := func() error { ran.Add(1); return nil }

		require.NoError(t, runSections(context.Background(), count, count, count))
		assert.Equal(t, int32(3), ran.Load())
	})

	t.Run("returns the first failure", func(t *testing.T) {
		err := runSections(context.Background(),
			func() error { return nil },
			func() error { return boom },
		)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("skips sections once cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var ran atomic.Int32
		count := func() error { ran.Add(1); return nil }

		err := runSections(ctx, count, count, count, count)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, ran.Load())
	})
}

func TestAnalytics_Dashboard_Idempotent(t *testing.T) {
	a := newLoaded(t)
	q := Query{Year: 2017, Region: "Oceania"}

	first, err := a.Dashboard(context.Background(), q)
	require.NoError(t, err)
	second, err := a.Dashboard(context.Background(), q)
	require.NoError(t, err)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(b1), string(b2))
	assert.Equal(t, b1, b2)
}

func TestAnalytics_KPI(t *testing.T) {
	a := newLoaded(t)

	k, err := a.KPI(context.Background(), Query{Year: 2017, Region: "Oceania"}, engine.MetricOTIF)
	require.NoError(t, err)
	assert.Equal(t, "20.00 %", k.Display)

	_, err = a.KPI(context.Background(), Query{Year: 2017, Region: "South America"}, engine.MetricTotalSales)
	requireCode(t, err, errors.CodeNoData)

	_, err = a.KPI(context.Background(), Query{Year: 2017}, engine.Metric("velocity"))
	requireCode(t, err, errors.CodeValidation)

	bundle, err := a.KPIs(context.Background(), Query{Year: 2016})
	require.NoError(t, err)
	assert.Equal(t, "100.00 %", bundle.OTIFRate.Display)
}

func TestAnalytics_ScopeTable(t *testing.T) {
	a := newLoaded(t)

	table, err := a.ScopeTable(context.Background(), 2017, engine.MetricTotalSales)
	require.NoError(t, err)
	require.Len(t, table, 3)
	assert.Equal(t, 1250.0, table[2].Value)

	_, err = a.ScopeTable(context.Background(), 2017, engine.Metric("nope"))
	requireCode(t, err, errors.CodeValidation)
}

func TestAnalytics_Rank(t *testing.T) {
	a := newLoaded(t)
	spec := engine.RankSpec{
		Dimension: engine.DimMarket,
		Measure:   engine.MeasureProfit,
		N:         1,
		Direction: engine.Bottom,
		Scale:     engine.ScaleThousands,
	}

	out, err := a.Rank(context.Background(), Query{Year: 2017}, spec)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Pacific Asia", out[0].Group)
	assert.Equal(t, "$0.03K", out[0].Label)
	assert.Equal(t, "#FF9900", out[0].Color)

	out, err = a.Rank(context.Background(), Query{Year: 2017, Region: "Western Europe"}, spec)
	require.NoError(t, err)
	assert.Equal(t, "Europe", out[0].Group)

	spec.Scale = "gigantic"
	_, err = a.Rank(context.Background(), Query{Year: 2017}, spec)
	requireCode(t, err, errors.CodeValidation)
}

func TestAnalytics_DailySales(t *testing.T) {
	a := NewAnalytics(WithDailyFill(engine.FillZero))
	a.SetData([]models.Order{
		{Year: 2017, Date: time.Date(2017, 5, 1, 0, 0, 0, 0, time.UTC), Region: "X", Sales: 10},
		{Year: 2017, Date: time.Date(2017, 5, 4, 0, 0, 0, 0, time.UTC), Region: "X", Sales: 20},
	})

	filled, err := a.DailySales(context.Background(), Query{Year: 2017}, "")
	require.NoError(t, err)
	assert.Len(t, filled, 4)

	sparse, err := a.DailySales(context.Background(), Query{Year: 2017}, engine.FillNone)
	require.NoError(t, err)
	assert.Len(t, sparse, 2)
}

func TestAnalytics_RegionsAndYears(t *testing.T) {
	a := newLoaded(t)

	years, err := a.Years()
	require.NoError(t, err)
	assert.Equal(t, []int{2016, 2017}, years)

	regions, err := a.Regions(2017)
	require.NoError(t, err)
	assert.Equal(t, []string{engine.AllRegions, "Oceania", "Western Europe"}, regions)

	all, err := a.Regions(0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = a.Regions(1990)
	requireCode(t, err, errors.CodeValidation)

	a = newLoaded(t, WithYearRange(2017, 2017, 0))
	years, err = a.Years()
	require.NoError(t, err)
	assert.Equal(t, []int{2017}, years)
}

func TestAnalytics_Relationship(t *testing.T) {
	a := newLoaded(t)

	rel, err := a.Relationship(context.Background(), 2017)
	require.NoError(t, err)
	require.Len(t, rel, 2)
	assert.Equal(t, "Oceania", rel[0].Region)
	assert.Equal(t, 50.0, rel[0].MeanSales)
}

const csvHeader = "order_year,order_date,order_region,market,category_name,sales,order_item_quantity,order_profit_per_order,days_for_shipping_real,days_for_shipment_scheduled,shipping_days_difference\n"

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalytics_LoadFromFile(t *testing.T) {
	a := NewAnalytics()
	path := createTempCSV(t, csvHeader+
		"2017,2017-01-01,Western Europe,Europe,Cleats,100,1,10,3,4,1\n"+
		"2017,2017-01-02,Oceania,Pacific Asia,Fishing,bad,1,10,3,4,1\n")

	require.NoError(t, a.LoadFromFile(context.Background(), path))

	stats := a.Stats()
	assert.Equal(t, true, stats["loaded"])
	assert.Equal(t, 1, stats["record_count"])
	assert.Equal(t, 1, stats["skipped_rows"])
	assert.Equal(t, path, stats["source"])
}

func TestAnalytics_LoadFromFile_InvalidKeepsSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"header only", csvHeader},
		{"missing columns", "order_year,sales\n2017,1\n"},
		{"all rows invalid", csvHeader + "2017,never,A,Europe,Cleats,1,1,1,1,1,0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newLoaded(t)
			err := a.LoadFromFile(context.Background(), createTempCSV(t, tt.content))
			assert.Error(t, err)
			assert.Equal(t, len(testOrders()), a.Stats()["record_count"])
		})
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := newLoaded(t, WithMaxConcurrent(64, time.Second))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%5 == 0 {
				a.SetData(testOrders())
				return
			}
			d, err := a.Dashboard(context.Background(), Query{Year: 2017})
			if assert.NoError(t, err) {
				assert.Equal(t, "60.00 %", d.KPIs.OTIFRate.Display)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkAnalytics_Dashboard(b *testing.B) {
	a := NewAnalytics()
	var rows []models.Order
	regions := []string{"Western Europe", "Oceania", "South America", "Central America", "Eastern Asia"}
	categories := []string{"Cleats", "Fishing", "Toys", "Music", "Golf Balls", "Soccer", "Hockey"}
	for i := range 20000 {
		rows = append(rows, order(2017, regions[i%len(regions)], "Europe", categories[i%len(categories)], float64(i%500), i%3 != 0))
	}
	a.SetData(rows)
	q := Query{Year: 2017}

	for b.Loop() {
		if _, err := a.Dashboard(context.Background(), q); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnalytics_Rank(b *testing.B) {
	a := newLoaded(b)
	spec := engine.RankSpec{Dimension: engine.DimCategory, Measure: engine.MeasureSales, N: 5, Direction: engine.Top, Scale: engine.ScaleCurrency}

	for b.Loop() {
		if _, err := a.Rank(context.Background(), Query{Year: 2017}, spec); err != nil {
			b.Fatal(err)
		}
	}
}
