package models

type KPI struct {
	Name      string  `json:"name"`
	Scope     string  `json:"scope"`
	Value     float64 `json:"value"`
	Display   string  `json:"display"`
	Available bool    `json:"available"`
}

type KPIBundle struct {
	Scope           string `json:"scope"`
	OTIFRate        KPI    `json:"otif_rate"`
	AvgShippingDays KPI    `json:"avg_shipping_days"`
	TotalOrders     KPI    `json:"total_orders"`
	TotalSales      KPI    `json:"total_sales"`
	TotalProfit     KPI    `json:"total_profit"`
}

// All returns the bundle in card display order.
func (b KPIBundle) All() []KPI {
	return []KPI{b.TotalOrders, b.TotalSales, b.TotalProfit, b.AvgShippingDays, b.OTIFRate}
}

type ScopeValue struct {
	Scope string  `json:"scope"`
	Value float64 `json:"value"`
	Rows  int     `json:"rows"`
}

type RankingRow struct {
	Group  string  `json:"group"`
	Parent string  `json:"parent,omitempty"`
	Value  float64 `json:"value"`
	Label  string  `json:"label"`
	Color  string  `json:"color"`
}

type SeriesPoint struct {
	Date  string  `json:"date"`
	Sales float64 `json:"sales"`
}

type RegionAggregate struct {
	Region            string  `json:"region"`
	MeanDaysReal      float64 `json:"mean_days_real"`
	MeanDaysScheduled float64 `json:"mean_days_scheduled"`
	MeanSales         float64 `json:"mean_sales"`
}

// Dashboard is the payload for one (year, region) selection.
type Dashboard struct {
	Year               int               `json:"year"`
	Region             string            `json:"region"`
	ChoroplethURL      string            `json:"choropleth_url"`
	Rows               int               `json:"rows"`
	KPIs               KPIBundle         `json:"kpis"`
	OTIFByRegion       []ScopeValue      `json:"otif_by_region"`
	TopRegionsBySales  []RankingRow      `json:"top_regions_by_sales"`
	TopRegionsByOrders []RankingRow      `json:"top_regions_by_orders"`
	TopCategories      []RankingRow      `json:"top_categories"`
	BottomCategories   []RankingRow      `json:"bottom_categories"`
	DailySales         []SeriesPoint     `json:"daily_sales"`
	Relationship       []RegionAggregate `json:"relationship"`
}
