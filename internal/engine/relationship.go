package engine

import (
	"maps"
	"slices"

	"dataco-dashboard/internal/models"
)

type relationshipAcc struct {
	n             int
	daysReal      float64
	daysScheduled float64
	sales         float64
}

// RegionRelationship returns per-region means of real and scheduled
// shipping days and of sales, one row per region in ascending order.
func RegionRelationship(rows []models.Order) []models.RegionAggregate {
	acc := make(map[string]*relationshipAcc)
	for i := range rows {
		o := &rows[i]
		a := acc[o.Region]
		if a == nil {
			a = &relationshipAcc{}
			acc[o.Region] = a
		}
		a.n++
		a.daysReal += o.DaysReal
		a.daysScheduled += o.DaysScheduled
		a.sales += o.Sales
	}

	out := make([]models.RegionAggregate, 0, len(acc))
	for _, region := range slices.Sorted(maps.Keys(acc)) {
		a := acc[region]
		n := float64(a.n)
		out = append(out, models.RegionAggregate{
			Region:            region,
			MeanDaysReal:      a.daysReal / n,
			MeanDaysScheduled: a.daysScheduled / n,
			MeanSales:         a.sales / n,
		})
	}
	return out
}
