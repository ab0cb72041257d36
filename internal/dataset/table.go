package dataset

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"dataco-dashboard/internal/models"
)

// Table is the loaded, immutable order dataset. Accessors return copies of
// the derived lists; Orders returns the shared backing slice and callers
// must not modify it.
type Table struct {
	orders     []models.Order
	years      []int
	regions    []string
	byYear     map[int][]string
	markets    []string
	categories []string

	source   string
	skipped  int
	loadedAt time.Time
}

// NewTable indexes orders. The slice is retained, not copied.
func NewTable(orders []models.Order) *Table {
	t := &Table{
		orders:   orders,
		byYear:   make(map[int][]string),
		loadedAt: time.Now(),
	}

	t.years = sortedUniq(lo.Map(orders, func(o models.Order, _ int) int { return o.Year }))
	t.regions = sortedUniq(lo.Map(orders, func(o models.Order, _ int) string { return o.Region }))
	t.markets = sortedUniq(lo.Map(orders, func(o models.Order, _ int) string { return o.Market }))
	t.categories = sortedUniq(lo.Map(orders, func(o models.Order, _ int) string { return o.Category }))

	grouped := lo.GroupBy(orders, func(o models.Order) int { return o.Year })
	for year, rows := range grouped {
		t.byYear[year] = sortedUniq(lo.Map(rows, func(o models.Order, _ int) string { return o.Region }))
	}
	return t
}

func sortedUniq[T int | string](in []T) []T {
	out := lo.Uniq(in)
	slices.Sort(out)
	return out
}

func (t *Table) Orders() []models.Order { return t.orders }

func (t *Table) Len() int { return len(t.orders) }

func (t *Table) Years() []int { return slices.Clone(t.years) }

func (t *Table) Regions() []string { return slices.Clone(t.regions) }

func (t *Table) Markets() []string { return slices.Clone(t.markets) }

func (t *Table) Categories() []string { return slices.Clone(t.categories) }

// RegionsForYear returns the regions with at least one order in year.
func (t *Table) RegionsForYear(year int) []string {
	return slices.Clone(t.byYear[year])
}

func (t *Table) HasRegion(region string) bool {
	_, found := slices.BinarySearch(t.regions, region)
	return found
}

// Source is the file the table was loaded from, empty for in-memory tables.
func (t *Table) Source() string { return t.source }

// Skipped counts rows dropped during load for NaN cells or bad dates.
func (t *Table) Skipped() int { return t.skipped }

func (t *Table) LoadedAt() time.Time { return t.loadedAt }
