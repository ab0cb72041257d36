package engine

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"dataco-dashboard/internal/models"
)

const dayLayout = "2006-01-02"

// FillPolicy decides what happens to calendar days without orders.
type FillPolicy string

const (
	FillNone FillPolicy = "none"
	FillZero FillPolicy = "zero"
)

func ParseFillPolicy(s string) (FillPolicy, error) {
	switch FillPolicy(s) {
	case "", FillNone:
		return FillNone, nil
	case FillZero:
		return FillZero, nil
	}
	return "", fmt.Errorf("unknown fill policy %q", s)
}

// DailySales sums sales per calendar day for the region scope, ascending by
// date. With FillNone, days without orders are absent from the series.
func DailySales(rows []models.Order, region string, fill FillPolicy) []models.SeriesPoint {
	rows = FilterRegion(rows, region)

	days := make(map[string]float64)
	for i := range rows {
		days[rows[i].Date.Format(dayLayout)] += rows[i].Sales
	}

	keys := slices.Sorted(maps.Keys(days))
	if fill == FillZero && len(keys) > 1 {
		keys = fillDays(keys)
	}

	out := make([]models.SeriesPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.SeriesPoint{Date: k, Sales: Round2(days[k])})
	}
	return out
}

func fillDays(sorted []string) []string {
	first, err := time.Parse(dayLayout, sorted[0])
	if err != nil {
		return sorted
	}
	last, err := time.Parse(dayLayout, sorted[len(sorted)-1])
	if err != nil {
		return sorted
	}

	out := make([]string, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(dayLayout))
	}
	return out
}
