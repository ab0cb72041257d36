package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/series"
)

const (
	colYear          = "order_year"
	colDate          = "order_date"
	colRegion        = "order_region"
	colMarket        = "market"
	colCategory      = "category_name"
	colSales         = "sales"
	colQuantity      = "order_item_quantity"
	colProfit        = "order_profit_per_order"
	colDaysReal      = "days_for_shipping_real"
	colDaysScheduled = "days_for_shipment_scheduled"
	colDaysDiff      = "shipping_days_difference"
)

// RequiredColumns lists the header names a dataset file must carry.
var RequiredColumns = []string{
	colYear, colDate, colRegion, colMarket, colCategory, colSales,
	colQuantity, colProfit, colDaysReal, colDaysScheduled, colDaysDiff,
}

var columnTypes = map[string]series.Type{
	colYear:          series.Float,
	colDate:          series.String,
	colRegion:        series.String,
	colMarket:        series.String,
	colCategory:      series.String,
	colSales:         series.Float,
	colQuantity:      series.Float,
	colProfit:        series.Float,
	colDaysReal:      series.Float,
	colDaysScheduled: series.Float,
	colDaysDiff:      series.Float,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/2006",
	time.RFC3339,
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
