package audit

import (
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/collector"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// Params configures one audit run end to end.
type Params struct {
	Criteria     Criteria
	Required     RequiredFields
	Aliases      AliasMap
	Boundaries   model.Boundaries
	LookbackDays int
}

// Run threads collected batches through normalize, filter, classify and
// aggregate. Deterministic and free of I/O: now is captured once by the
// caller and used for every age computation. Skips are returned for the
// caller's log trail; their count is already in the summary.
func Run(batches []collector.Batch, p Params, now time.Time) (model.Report, []Skip, error) {
	var normalized []model.NormalizedIncident
	var skips []Skip
	fetched := 0

	for _, batch := range batches {
		fetched += batch.Len()
		incidents, batchSkips := Normalize(batch)
		normalized = append(normalized, incidents...)
		skips = append(skips, batchSkips...)
	}

	filtered, drops := Filter(normalized, p.Criteria)

	classified, err := Classify(filtered, p.Required, NewResolver(p.Aliases))
	if err != nil {
		return model.Report{}, skips, err
	}

	report := model.Report{
		Summary: model.RunSummary{
			GeneratedAt:  now,
			WindowStart:  p.Criteria.WindowStart,
			WindowEnd:    p.Criteria.WindowEnd,
			LookbackDays: p.LookbackDays,
			Fetched:      fetched,
			Normalized:   len(normalized),
			Skipped:      len(skips),
			Drops:        drops,
			Filtered:     len(filtered),
			Classified:   len(classified),
		},
		Incidents:   classified,
		Aggregation: Aggregate(classified, now, p.Boundaries, p.LookbackDays),
	}
	return report, skips, nil
}
