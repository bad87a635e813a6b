package audit

import (
	"testing"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

var (
	filterNow   = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	filterStart = filterNow.AddDate(0, 0, -30)
)

func baseCriteria() Criteria {
	return Criteria{
		Statuses: map[model.Platform][]string{
			model.PlatformIncidentIO:  {"Stabilized", "Documenting", "Closed"},
			model.PlatformFireHydrant: {"resolved", "postmortem_started", "postmortem_completed", "closed"},
		},
		Modes:                 []string{"standard", "retrospective"},
		ExcludeTypeSubstrings: []string{"[TEST]"},
		WindowStart:           filterStart,
		WindowEnd:             filterNow,
	}
}

func testIncident(platform model.Platform, status, mode string) model.NormalizedIncident {
	return model.NormalizedIncident{
		Reference: "INC-1",
		Platform:  platform,
		Status:    status,
		Mode:      mode,
		CreatedAt: filterNow.AddDate(0, 0, -2),
	}
}

func TestFilter_StatusInclusion(t *testing.T) {
	incidents := []model.NormalizedIncident{
		testIncident(model.PlatformIncidentIO, "Stabilized", "standard"),
		testIncident(model.PlatformIncidentIO, "Triage", "standard"),
	}

	kept, drops := Filter(incidents, baseCriteria())
	if len(kept) != 1 || kept[0].Status != "Stabilized" {
		t.Fatalf("expected only the Stabilized incident, got %d", len(kept))
	}
	if drops.Status != 1 {
		t.Errorf("status drops: got %d, want 1", drops.Status)
	}
}

func TestFilter_PlatformWithoutStatusListDropsAll(t *testing.T) {
	c := baseCriteria()
	delete(c.Statuses, model.PlatformFireHydrant)

	incidents := []model.NormalizedIncident{
		testIncident(model.PlatformFireHydrant, "resolved", ""),
	}
	kept, drops := Filter(incidents, c)
	if len(kept) != 0 {
		t.Fatalf("platform without configured statuses should keep nothing, kept %d", len(kept))
	}
	if drops.Status != 1 {
		t.Errorf("status drops: got %d, want 1", drops.Status)
	}
}

func TestFilter_TypeExclusionCaseSensitive(t *testing.T) {
	excluded := testIncident(model.PlatformIncidentIO, "Closed", "standard")
	excluded.Type = "[TEST] Game day"
	kept := testIncident(model.PlatformIncidentIO, "Closed", "standard")
	kept.Type = "[test] lower case survives"

	out, drops := Filter([]model.NormalizedIncident{excluded, kept}, baseCriteria())
	if len(out) != 1 || out[0].Type != "[test] lower case survives" {
		t.Fatalf("expected case-sensitive substring exclusion, kept %d", len(out))
	}
	if drops.Type != 1 {
		t.Errorf("type drops: got %d, want 1", drops.Type)
	}
}

func TestFilter_ModePlatformScoping(t *testing.T) {
	// FireHydrant carries no mode and passes the mode stage unconditionally;
	// incident.io passes only on an allow-listed mode.
	fh := testIncident(model.PlatformFireHydrant, "resolved", "")
	stdMode := testIncident(model.PlatformIncidentIO, "Closed", "standard")
	tutorial := testIncident(model.PlatformIncidentIO, "Closed", "tutorial")

	out, drops := Filter([]model.NormalizedIncident{fh, stdMode, tutorial}, baseCriteria())
	if len(out) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(out))
	}
	for _, inc := range out {
		if inc.Mode == "tutorial" {
			t.Error("tutorial mode should be dropped")
		}
	}
	if drops.Mode != 1 {
		t.Errorf("mode drops: got %d, want 1", drops.Mode)
	}
}

func TestFilter_SeverityInternalImpact(t *testing.T) {
	inc := testIncident(model.PlatformIncidentIO, "Closed", "standard")
	inc.Severity = "SEV1 (Internal Impact)"

	c := baseCriteria()
	c.SeverityFiltering = true
	c.Severities = map[model.Platform][]string{model.PlatformIncidentIO: {"SEV1"}}

	c.IncludeInternalImpact = true
	out, _ := Filter([]model.NormalizedIncident{inc}, c)
	if len(out) != 1 {
		t.Error("internal impact variant should pass when inclusion is on")
	}

	c.IncludeInternalImpact = false
	out, drops := Filter([]model.NormalizedIncident{inc}, c)
	if len(out) != 0 {
		t.Error("internal impact variant should be excluded when inclusion is off")
	}
	if drops.Severity != 1 {
		t.Errorf("severity drops: got %d, want 1", drops.Severity)
	}
}

func TestFilter_SeverityExactMatch(t *testing.T) {
	inc := testIncident(model.PlatformIncidentIO, "Closed", "standard")
	inc.Severity = "SEV2"

	c := baseCriteria()
	c.SeverityFiltering = true
	c.Severities = map[model.Platform][]string{model.PlatformIncidentIO: {"SEV1", "SEV2"}}

	out, _ := Filter([]model.NormalizedIncident{inc}, c)
	if len(out) != 1 {
		t.Error("exact severity match should pass")
	}
}

func TestFilter_SeverityMissingExcludedWhenEnabled(t *testing.T) {
	inc := testIncident(model.PlatformIncidentIO, "Closed", "standard")

	c := baseCriteria()
	c.SeverityFiltering = true
	c.Severities = map[model.Platform][]string{model.PlatformIncidentIO: {"SEV1"}}

	out, drops := Filter([]model.NormalizedIncident{inc}, c)
	if len(out) != 0 {
		t.Error("missing severity should be excluded while filtering is enabled")
	}
	if drops.Severity != 1 {
		t.Errorf("severity drops: got %d, want 1", drops.Severity)
	}
}

func TestFilter_SeverityGateOffPassesEverything(t *testing.T) {
	inc := testIncident(model.PlatformIncidentIO, "Closed", "standard")
	// No severity at all; the disabled gate must not touch it.
	out, drops := Filter([]model.NormalizedIncident{inc}, baseCriteria())
	if len(out) != 1 {
		t.Error("disabled severity gate should pass incidents without severity")
	}
	if drops.Severity != 0 {
		t.Errorf("severity drops: got %d, want 0", drops.Severity)
	}
}

func TestFilter_SeverityFireHydrantNoInternalImpactPath(t *testing.T) {
	inc := testIncident(model.PlatformFireHydrant, "resolved", "")
	inc.Severity = "SEV1 (Internal Impact)"

	c := baseCriteria()
	c.SeverityFiltering = true
	c.IncludeInternalImpact = true
	c.Severities = map[model.Platform][]string{model.PlatformFireHydrant: {"SEV1"}}

	out, _ := Filter([]model.NormalizedIncident{inc}, c)
	if len(out) != 0 {
		t.Error("the internal-impact token path applies to incident.io only")
	}
}

func TestFilter_WindowInclusiveBounds(t *testing.T) {
	atStart := testIncident(model.PlatformIncidentIO, "Closed", "standard")
	atStart.CreatedAt = filterStart
	atEnd := testIncident(model.PlatformIncidentIO, "Closed", "standard")
	atEnd.CreatedAt = filterNow
	before := testIncident(model.PlatformIncidentIO, "Closed", "standard")
	before.CreatedAt = filterStart.Add(-time.Second)

	out, drops := Filter([]model.NormalizedIncident{atStart, atEnd, before}, baseCriteria())
	if len(out) != 2 {
		t.Fatalf("window bounds are inclusive: kept %d, want 2", len(out))
	}
	if drops.Window != 1 {
		t.Errorf("window drops: got %d, want 1", drops.Window)
	}
}
