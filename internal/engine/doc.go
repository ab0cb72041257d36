// Package engine holds the aggregation core of the dashboard: scalar KPIs
// per region scope, grouped rankings, the daily sales series and the
// per-region shipping relationship.
//
// Every function is pure over its input rows. Rows are expected to be
// filtered to a single order year already (see FilterYear); region
// narrowing is applied inside each computation so the "All Regions"
// aggregates can be derived from the same rows.
//
// Numeric rounding to two decimals is part of every result; string labels
// are produced from the rounded values by a Formatter.
package engine
