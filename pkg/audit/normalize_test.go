package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/collector"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

func TestNormalize_IncidentIO(t *testing.T) {
	batch := collector.Batch{
		Unit:     model.UnitEMEA,
		Platform: model.PlatformIncidentIO,
		IncidentIO: []collector.IncidentIOIncident{
			{
				ID:             "01HXYZABCDEF",
				Reference:      "INC-101",
				CreatedAt:      "2024-05-02T10:00:00Z",
				Mode:           "standard",
				IncidentStatus: collector.NamedRef{Name: "Stabilized"},
				Severity:       &collector.NamedRef{Name: "SEV2"},
				IncidentType:   &collector.NamedRef{Name: "Customer Facing"},
			},
			{
				ID:             "01HBADDATE",
				Reference:      "INC-102",
				CreatedAt:      "yesterday-ish",
				IncidentStatus: collector.NamedRef{Name: "Closed"},
			},
		},
	}

	incidents, skips := Normalize(batch)

	if len(incidents) != 1 {
		t.Fatalf("expected 1 normalized incident, got %d", len(incidents))
	}
	inc := incidents[0]
	if inc.Reference != "INC-101" {
		t.Errorf("reference: got %q, want %q", inc.Reference, "INC-101")
	}
	if inc.BusinessUnit != model.UnitEMEA || inc.Platform != model.PlatformIncidentIO {
		t.Errorf("unit/platform: got %s/%s", inc.BusinessUnit, inc.Platform)
	}
	if inc.Status != "Stabilized" || inc.Mode != "standard" {
		t.Errorf("status/mode: got %q/%q", inc.Status, inc.Mode)
	}
	if inc.Severity != "SEV2" || inc.Type != "Customer Facing" {
		t.Errorf("severity/type: got %q/%q", inc.Severity, inc.Type)
	}
	want := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	if !inc.CreatedAt.Equal(want) {
		t.Errorf("createdAt: got %v, want %v", inc.CreatedAt, want)
	}
	if inc.Raw == nil {
		t.Error("raw payload not retained")
	}

	if len(skips) != 1 {
		t.Fatalf("expected 1 skip, got %d", len(skips))
	}
	if skips[0].Reference != "INC-102" {
		t.Errorf("skip reference: got %q, want %q", skips[0].Reference, "INC-102")
	}
	if skips[0].Reason == "" {
		t.Error("skip should carry a reason")
	}
}

func TestNormalize_IncidentIOReferenceFallback(t *testing.T) {
	batch := collector.Batch{
		Unit:     model.UnitNA,
		Platform: model.PlatformIncidentIO,
		IncidentIO: []collector.IncidentIOIncident{
			{ID: "01hxyzabcdef", CreatedAt: "2024-05-02T10:00:00Z"},
		},
	}

	incidents, _ := Normalize(batch)
	if len(incidents) != 1 {
		t.Fatalf("expected 1 incident, got %d", len(incidents))
	}
	if got := incidents[0].Reference; got != "01HXYZAB" {
		t.Errorf("fallback reference: got %q, want %q", got, "01HXYZAB")
	}
}

func TestNormalize_FireHydrant(t *testing.T) {
	batch := collector.Batch{
		Unit:     model.UnitAPAC,
		Platform: model.PlatformFireHydrant,
		FireHydrant: []collector.FireHydrantIncident{
			{
				ID:               "a1b2c3d4e5",
				Number:           77,
				CreatedAt:        "2024-04-20T08:30:00Z",
				CurrentMilestone: "resolved",
				Severity:         json.RawMessage(`{"slug": "sev2"}`),
			},
			{
				ID:               "ffff0000aaaa",
				CreatedAt:        "",
				CurrentMilestone: "closed",
			},
		},
	}

	incidents, skips := Normalize(batch)

	if len(incidents) != 1 {
		t.Fatalf("expected 1 normalized incident, got %d", len(incidents))
	}
	inc := incidents[0]
	if inc.Reference != "#77" {
		t.Errorf("reference: got %q, want %q", inc.Reference, "#77")
	}
	if inc.Status != "resolved" {
		t.Errorf("status: got %q, want %q", inc.Status, "resolved")
	}
	if inc.Severity != "sev2" {
		t.Errorf("severity should be unwrapped during normalization: got %q", inc.Severity)
	}
	if inc.Mode != "" {
		t.Errorf("firehydrant incidents carry no mode, got %q", inc.Mode)
	}

	if len(skips) != 1 {
		t.Fatalf("expected 1 skip for missing created_at, got %d", len(skips))
	}
	if skips[0].Reference != "FFFF0000" {
		t.Errorf("skip reference: got %q, want %q", skips[0].Reference, "FFFF0000")
	}
}

func TestNormalize_FractionalSecondsTolerated(t *testing.T) {
	batch := collector.Batch{
		Unit:     model.UnitEMEA,
		Platform: model.PlatformIncidentIO,
		IncidentIO: []collector.IncidentIOIncident{
			{Reference: "INC-1", CreatedAt: "2024-05-02T10:00:00.123456Z"},
		},
	}

	incidents, skips := Normalize(batch)
	if len(skips) != 0 {
		t.Fatalf("fractional seconds should parse, got skip %v", skips[0])
	}
	if len(incidents) != 1 {
		t.Fatalf("expected 1 incident, got %d", len(incidents))
	}
}
