package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"dataco-dashboard/internal/models"
)

// ErrNoData is returned when a metric is requested for a scope that has no
// rows after filtering.
var ErrNoData = errors.New("no data for requested scope")

const notAvailable = "N/A"

type Metric string

const (
	MetricOTIF            Metric = "otif_rate"
	MetricAvgShippingDays Metric = "avg_shipping_days"
	MetricTotalOrders     Metric = "total_orders"
	MetricTotalSales      Metric = "total_sales"
	MetricTotalProfit     Metric = "total_profit"
)

var Metrics = []Metric{
	MetricOTIF,
	MetricAvgShippingDays,
	MetricTotalOrders,
	MetricTotalSales,
	MetricTotalProfit,
}

func (m Metric) Valid() bool {
	return slices.Contains(Metrics, m)
}

func (m Metric) Title() string {
	switch m {
	case MetricOTIF:
		return "OTIF Rate"
	case MetricAvgShippingDays:
		return "Average Delivered Days"
	case MetricTotalOrders:
		return "Total Order"
	case MetricTotalSales:
		return "Total Sales"
	case MetricTotalProfit:
		return "Total Profit"
	}
	return string(m)
}

func (m Metric) format(f Formatter, v float64) string {
	switch m {
	case MetricOTIF:
		return f.Rate(v)
	case MetricAvgShippingDays:
		return f.Days(v)
	case MetricTotalOrders:
		return f.Quantity(v)
	default:
		return f.Currency(v)
	}
}

type regionStats struct {
	rows     int
	onTime   int
	daysReal float64
	quantity float64
	sales    float64
	profit   float64
}

func (s *regionStats) add(o *regionStats) {
	s.rows += o.rows
	s.onTime += o.onTime
	s.daysReal += o.daysReal
	s.quantity += o.quantity
	s.sales += o.sales
	s.profit += o.profit
}

func (m Metric) regionValue(s *regionStats) float64 {
	switch m {
	case MetricOTIF:
		return float64(s.onTime) / float64(s.rows) * 100
	case MetricAvgShippingDays:
		return s.daysReal / float64(s.rows)
	case MetricTotalOrders:
		return s.quantity
	case MetricTotalSales:
		return s.sales
	case MetricTotalProfit:
		return s.profit
	}
	return 0
}

type regionGroups struct {
	names []string
	stats map[string]*regionStats
}

func groupByRegion(rows []models.Order) regionGroups {
	stats := make(map[string]*regionStats)
	for i := range rows {
		o := &rows[i]
		s := stats[o.Region]
		if s == nil {
			s = &regionStats{}
			stats[o.Region] = s
		}
		s.rows++
		if o.OnTime() {
			s.onTime++
		}
		s.daysReal += o.DaysReal
		s.quantity += float64(o.Quantity)
		s.sales += o.Sales
		s.profit += o.Profit
	}
	return regionGroups{names: slices.Sorted(maps.Keys(stats)), stats: stats}
}

// table builds one row per region followed by the AllRegions row.
//
// The AllRegions value is row-weighted for OTIF and the sums, but the mean
// of per-region means for average shipping days.
func (g regionGroups) table(m Metric) []models.ScopeValue {
	out := make([]models.ScopeValue, 0, len(g.names)+1)
	if len(g.names) == 0 {
		return out
	}

	var total regionStats
	var meanSum float64
	for _, name := range g.names {
		s := g.stats[name]
		v := m.regionValue(s)
		out = append(out, models.ScopeValue{Scope: name, Value: Round2(v), Rows: s.rows})
		total.add(s)
		meanSum += v
	}

	all := m.regionValue(&total)
	if m == MetricAvgShippingDays {
		all = meanSum / float64(len(g.names))
	}
	return append(out, models.ScopeValue{Scope: AllRegions, Value: Round2(all), Rows: total.rows})
}

func (g regionGroups) lookup(m Metric, scope string) (float64, error) {
	scope = NormalizeScope(scope)
	for _, sv := range g.table(m) {
		if sv.Scope == scope {
			return sv.Value, nil
		}
	}
	return 0, fmt.Errorf("%w: %s for %q", ErrNoData, m, scope)
}

// ScopeValues returns the per-scope table for a metric: regions in
// ascending order, then AllRegions. Empty rows give an empty table.
func ScopeValues(rows []models.Order, m Metric) []models.ScopeValue {
	return groupByRegion(rows).table(m)
}

// MetricValue returns the rounded value of m for one scope, or ErrNoData.
func MetricValue(rows []models.Order, m Metric, scope string) (float64, error) {
	if !m.Valid() {
		return 0, fmt.Errorf("unknown metric %q", m)
	}
	return groupByRegion(rows).lookup(m, scope)
}

// ComputeKPIs evaluates every metric for scope. It never fails: scopes with
// no rows come back with Available=false and an "N/A" display.
func ComputeKPIs(rows []models.Order, scope string, f Formatter) models.KPIBundle {
	scope = NormalizeScope(scope)
	g := groupByRegion(rows)

	kpi := func(m Metric) models.KPI {
		k := models.KPI{Name: m.Title(), Scope: scope, Display: notAvailable}
		v, err := g.lookup(m, scope)
		if err != nil {
			return k
		}
		k.Value = v
		k.Display = m.format(f, v)
		k.Available = true
		return k
	}

	return models.KPIBundle{
		Scope:           scope,
		OTIFRate:        kpi(MetricOTIF),
		AvgShippingDays: kpi(MetricAvgShippingDays),
		TotalOrders:     kpi(MetricTotalOrders),
		TotalSales:      kpi(MetricTotalSales),
		TotalProfit:     kpi(MetricTotalProfit),
	}
}
