package engine

import (
	"strings"

	"github.com/samber/lo"

	"dataco-dashboard/internal/models"
)

// AllRegions is the scope sentinel for the aggregate over every region.
const AllRegions = "All Regions"

// NormalizeScope maps an empty selection to AllRegions.
func NormalizeScope(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return AllRegions
	}
	return scope
}

func FilterYear(rows []models.Order, year int) []models.Order {
	return lo.Filter(rows, func(o models.Order, _ int) bool {
		return o.Year == year
	})
}

// FilterRegion narrows rows to one region. AllRegions (or an empty scope)
// returns the input unchanged.
func FilterRegion(rows []models.Order, region string) []models.Order {
	region = NormalizeScope(region)
	if region == AllRegions {
		return rows
	}
	return lo.Filter(rows, func(o models.Order, _ int) bool {
		return o.Region == region
	})
}
