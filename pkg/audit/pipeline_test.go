package audit

import (
	"reflect"
	"testing"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/collector"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// scenarioBatches builds the canonical three-incident walk-through: one
// incident.io incident missing only its causal type, one dropped at the
// status filter, and one FireHydrant incident missing its market.
func scenarioBatches(now time.Time) []collector.Batch {
	return []collector.Batch{
		{
			Unit:     model.UnitEMEA,
			Platform: model.PlatformIncidentIO,
			IncidentIO: []collector.IncidentIOIncident{
				{
					Reference:      "INC-201",
					CreatedAt:      now.AddDate(0, 0, -3).Format(time.RFC3339),
					Mode:           "standard",
					IncidentStatus: collector.NamedRef{Name: "Stabilized"},
					CustomFieldEntries: []collector.CustomFieldEntry{
						{
							CustomField: collector.NamedRef{Name: "Contributing Factors"},
							Values:      []collector.CustomFieldValue{{ValueText: "Late paging"}},
						},
					},
					IncidentTimestampValues: []collector.IncidentTimestampValue{
						{
							IncidentTimestamp: collector.NamedRef{Name: "Stabilized"},
							Value:             &collector.TimestampValue{Value: now.AddDate(0, 0, -2).Format(time.RFC3339)},
						},
					},
				},
			},
		},
		{
			Unit:     model.UnitNA,
			Platform: model.PlatformIncidentIO,
			IncidentIO: []collector.IncidentIOIncident{
				{
					Reference:      "INC-202",
					CreatedAt:      now.AddDate(0, 0, -5).Format(time.RFC3339),
					Mode:           "standard",
					IncidentStatus: collector.NamedRef{Name: "Triage"},
				},
			},
		},
		{
			Unit:     model.UnitAPAC,
			Platform: model.PlatformFireHydrant,
			FireHydrant: []collector.FireHydrantIncident{
				{
					ID:               "a1b2c3d4",
					Number:           77,
					CreatedAt:        now.AddDate(0, 0, -40).Format(time.RFC3339),
					CurrentMilestone: "closed",
				},
			},
		},
	}
}

func scenarioParams(now time.Time) Params {
	return Params{
		Criteria: Criteria{
			Statuses: map[model.Platform][]string{
				model.PlatformIncidentIO:  {"Stabilized", "Documenting", "Closed"},
				model.PlatformFireHydrant: {"resolved", "postmortem_started", "postmortem_completed", "closed"},
			},
			Modes:                 []string{"standard", "retrospective"},
			ExcludeTypeSubstrings: []string{"[TEST]"},
			WindowStart:           now.AddDate(0, 0, -90),
			WindowEnd:             now,
		},
		Required:     DefaultRequiredFields(),
		Aliases:      DefaultAliases(),
		Boundaries:   model.DefaultBoundaries(),
		LookbackDays: 90,
	}
}

func TestRun_EndToEndScenario(t *testing.T) {
	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	report, skips, err := Run(scenarioBatches(now), scenarioParams(now), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(skips) != 0 {
		t.Fatalf("expected no skips, got %v", skips)
	}

	s := report.Summary
	if s.Fetched != 3 || s.Normalized != 3 {
		t.Errorf("fetched/normalized: got %d/%d, want 3/3", s.Fetched, s.Normalized)
	}
	if s.Drops.Status != 1 || s.Filtered != 2 {
		t.Errorf("status drop trail: got %d dropped, %d filtered, want 1 and 2", s.Drops.Status, s.Filtered)
	}
	if s.Classified != 2 {
		t.Errorf("classified: got %d, want 2", s.Classified)
	}

	if len(report.Incidents) != 2 {
		t.Fatalf("expected 2 classified incidents, got %d", len(report.Incidents))
	}
	byRef := map[string][]string{}
	for _, inc := range report.Incidents {
		byRef[inc.Reference] = inc.MissingFields
	}
	if got := byRef["INC-201"]; !reflect.DeepEqual(got, []string{"Causal Type"}) {
		t.Errorf("INC-201 missing fields: got %v, want [Causal Type]", got)
	}
	if got := byRef["#77"]; !reflect.DeepEqual(got, []string{"Market"}) {
		t.Errorf("#77 missing fields: got %v, want [Market]", got)
	}
	if _, ok := byRef["INC-202"]; ok {
		t.Error("INC-202 should be dropped at the status filter")
	}

	agg := report.Aggregation
	if agg.GrandTotal != 2 {
		t.Errorf("grand total: got %d, want 2", agg.GrandTotal)
	}
	if agg.Totals.Counts != (model.BucketCounts{1, 0, 1, 0}) {
		t.Errorf("bucket placement: got %v, want one in 0-7 and one in 30-90", agg.Totals.Counts)
	}

	wantUnits := map[string]int{"EMEA": 1, "NA": 0, "APAC": 1}
	for _, row := range agg.ByUnit {
		if row.Total != wantUnits[row.Key] {
			t.Errorf("unit %s: got %d, want %d", row.Key, row.Total, wantUnits[row.Key])
		}
	}
}

func TestRun_Idempotence(t *testing.T) {
	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	first, _, err := Run(scenarioBatches(now), scenarioParams(now), now)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, _, err := Run(scenarioBatches(now), scenarioParams(now), now)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(first.Summary, second.Summary) {
		t.Error("summaries differ between identical runs")
	}
	if !reflect.DeepEqual(first.Aggregation, second.Aggregation) {
		t.Error("aggregations differ between identical runs")
	}
	if len(first.Incidents) != len(second.Incidents) {
		t.Fatalf("incident counts differ: %d vs %d", len(first.Incidents), len(second.Incidents))
	}
	for i := range first.Incidents {
		if !reflect.DeepEqual(first.Incidents[i].MissingFields, second.Incidents[i].MissingFields) {
			t.Errorf("incident %d missing fields differ", i)
		}
	}
}

func TestRun_ClassifierSetupErrorFailsRun(t *testing.T) {
	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	p := scenarioParams(now)
	p.Required = RequiredFields{model.PlatformIncidentIO: {"Causal Type"}}

	_, _, err := Run(scenarioBatches(now), p, now)
	if err == nil {
		t.Fatal("expected setup error when a platform has no required-field list")
	}
}

func TestRun_SkippedRecordsCounted(t *testing.T) {
	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	batches := scenarioBatches(now)
	batches[0].IncidentIO = append(batches[0].IncidentIO, collector.IncidentIOIncident{
		Reference: "INC-999",
		CreatedAt: "not a timestamp",
	})

	report, skips, err := Run(batches, scenarioParams(now), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(skips) != 1 || skips[0].Reference != "INC-999" {
		t.Fatalf("expected INC-999 skipped, got %v", skips)
	}
	if report.Summary.Fetched != 4 || report.Summary.Skipped != 1 {
		t.Errorf("summary: fetched %d skipped %d, want 4 and 1", report.Summary.Fetched, report.Summary.Skipped)
	}
}
