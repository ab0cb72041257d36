package engine

import (
	"cmp"
	"fmt"
	"slices"

	"dataco-dashboard/internal/models"
	"dataco-dashboard/internal/palette"
)

type Dimension string

const (
	DimMarket       Dimension = "market"
	DimRegion       Dimension = "order_region"
	DimMarketRegion Dimension = "market_region"
	DimCategory     Dimension = "category_name"
)

type Measure string

const (
	MeasureSales    Measure = "sales"
	MeasureQuantity Measure = "order_item_quantity"
	MeasureProfit   Measure = "order_profit_per_order"
)

type Direction string

const (
	Top    Direction = "top"
	Bottom Direction = "bottom"
)

// RankSpec configures one ranking. N <= 0 keeps every group. Region
// narrows the rows before grouping; empty or AllRegions keeps them all.
type RankSpec struct {
	Dimension Dimension
	Measure   Measure
	N         int
	Direction Direction
	Scale     Scale
	Region    string
}

func (s RankSpec) Validate() error {
	switch s.Dimension {
	case DimMarket, DimRegion, DimMarketRegion, DimCategory:
	default:
		return fmt.Errorf("unknown dimension %q", s.Dimension)
	}
	switch s.Measure {
	case MeasureSales, MeasureQuantity, MeasureProfit:
	default:
		return fmt.Errorf("unknown measure %q", s.Measure)
	}
	if s.Direction != Top && s.Direction != Bottom {
		return fmt.Errorf("unknown direction %q", s.Direction)
	}
	if !s.Scale.Valid() {
		return fmt.Errorf("unknown scale %q", s.Scale)
	}
	return nil
}

type groupKey struct {
	parent string
	name   string
}

func (d Dimension) key(o *models.Order) groupKey {
	switch d {
	case DimMarket:
		return groupKey{name: o.Market}
	case DimRegion:
		return groupKey{name: o.Region}
	case DimMarketRegion:
		return groupKey{parent: o.Market, name: o.Region}
	default:
		return groupKey{name: o.Category}
	}
}

func (d Dimension) color(p palette.Palette, k groupKey) string {
	switch d {
	case DimCategory:
		return p.Category(k.name)
	case DimMarket:
		return p.Market(k.name)
	default:
		return p.Market(k.parent)
	}
}

func (m Measure) value(o *models.Order) float64 {
	switch m {
	case MeasureQuantity:
		return float64(o.Quantity)
	case MeasureProfit:
		return o.Profit
	default:
		return o.Sales
	}
}

// Rank groups rows by the requested dimension, sums the measure, and returns the
// top or bottom N groups.
//
// Groups start in ascending key order and are stable-sorted by descending
// sum, so ties keep key order. Top is the head of that order and Bottom is
// its tail; both are returned in descending order.
func Rank(rows []models.Order, spec RankSpec, f Formatter, p palette.Palette) ([]models.RankingRow, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	rows = FilterRegion(rows, spec.Region)

	sums := make(map[groupKey]float64)
	keys := make([]groupKey, 0)
	for i := range rows {
		k := spec.Dimension.key(&rows[i])
		if _, seen := sums[k]; !seen {
			keys = append(keys, k)
		}
		sums[k] += spec.Measure.value(&rows[i])
	}

	slices.SortFunc(keys, func(a, b groupKey) int {
		return cmp.Or(cmp.Compare(a.parent, b.parent), cmp.Compare(a.name, b.name))
	})
	slices.SortStableFunc(keys, func(a, b groupKey) int {
		return cmp.Compare(sums[b], sums[a])
	})

	if spec.N > 0 && len(keys) > spec.N {
		if spec.Direction == Bottom {
			keys = keys[len(keys)-spec.N:]
		} else {
			keys = keys[:spec.N]
		}
	}

	out := make([]models.RankingRow, 0, len(keys))
	for _, k := range keys {
		v := Round2(sums[k])
		out = append(out, models.RankingRow{
			Group:  k.name,
			Parent: k.parent,
			Value:  v,
			Label:  f.Scaled(spec.Scale, v),
			Color:  spec.Dimension.color(p, k),
		})
	}
	return out, nil
}
