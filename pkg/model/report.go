package model

import "time"

// BucketCounts holds one count per age bucket, in bucket order.
type BucketCounts [NumBuckets]int

// AggregationRow is one line of a cross-tabulation: counts per bucket for a
// single key (a business unit, a platform, or a missing-field name), the sum
// across buckets, and that sum as a share of the grand total formatted to one
// decimal place.
type AggregationRow struct {
	Key     string       `json:"key"`
	Counts  BucketCounts `json:"counts"`
	Total   int          `json:"total"`
	Percent string       `json:"percent"`
}

// Aggregation is the bucketed view of one run's classified incidents.
type Aggregation struct {
	Now        time.Time          `json:"now"`
	Boundaries Boundaries         `json:"boundaries"`
	Labels     [NumBuckets]string `json:"labels"`
	Available  [NumBuckets]bool   `json:"available"`
	GrandTotal int                `json:"grandTotal"`
	Totals     AggregationRow     `json:"totals"`
	ByUnit     []AggregationRow   `json:"byUnit"`
	ByPlatform []AggregationRow   `json:"byPlatform"`
	ByField    []AggregationRow   `json:"byField"`
}

// FilterDrops tallies, per filter stage, how many incidents the stage
// removed. Stage names follow the fixed predicate order.
type FilterDrops struct {
	Status   int `json:"status"`
	Type     int `json:"type"`
	Mode     int `json:"mode"`
	Severity int `json:"severity"`
	Window   int `json:"window"`
}

func (d FilterDrops) Total() int {
	return d.Status + d.Type + d.Mode + d.Severity + d.Window
}

// RunSummary records what one audit run saw at each stage, including the
// per-incident drops, so a report never hides how much input it discarded.
type RunSummary struct {
	GeneratedAt  time.Time   `json:"generatedAt"`
	WindowStart  time.Time   `json:"windowStart"`
	WindowEnd    time.Time   `json:"windowEnd"`
	LookbackDays int         `json:"lookbackDays"`
	Fetched      int         `json:"fetched"`
	Normalized   int         `json:"normalized"`
	Skipped      int         `json:"skipped"`
	Drops        FilterDrops `json:"drops"`
	Filtered     int         `json:"filtered"`
	Classified   int         `json:"classified"`
}

// Report is the full output of one audit run: the summary, every incident
// missing at least one required field, and the bucketed aggregation. It is
// what gets rendered, persisted, emailed and served.
type Report struct {
	Summary     RunSummary           `json:"summary"`
	Incidents   []ClassifiedIncident `json:"incidents"`
	Aggregation Aggregation          `json:"aggregation"`
}
