package models

import "time"

// Order is one row of the preprocessed order dataset.
type Order struct {
	Year           int
	Date           time.Time
	Region         string
	Market         string
	Category       string
	Sales          float64
	Quantity       int
	Profit         float64
	DaysReal       float64
	DaysScheduled  float64
	DaysDifference float64
}

// OnTime reports whether the order shipped on or before its scheduled date.
func (o Order) OnTime() bool {
	return o.DaysDifference >= 0
}
