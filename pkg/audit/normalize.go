package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/collector"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// Skip records one raw incident the normalizer could not map, with enough
// context for the log trail.
type Skip struct {
	Unit      model.BusinessUnit
	Platform  model.Platform
	Reference string
	Reason    string
}

// Normalize maps one batch of raw incidents onto the common shape. Records
// that cannot be mapped come back as skips; a bad record never aborts the
// batch.
func Normalize(batch collector.Batch) ([]model.NormalizedIncident, []Skip) {
	var out []model.NormalizedIncident
	var skips []Skip

	switch batch.Platform {
	case model.PlatformIncidentIO:
		for _, raw := range batch.IncidentIO {
			inc, err := normalizeIncidentIO(batch.Unit, raw)
			if err != nil {
				skips = append(skips, Skip{
					Unit:      batch.Unit,
					Platform:  batch.Platform,
					Reference: incidentIOReference(raw),
					Reason:    err.Error(),
				})
				continue
			}
			out = append(out, inc)
		}
	case model.PlatformFireHydrant:
		for _, raw := range batch.FireHydrant {
			inc, err := normalizeFireHydrant(batch.Unit, raw)
			if err != nil {
				skips = append(skips, Skip{
					Unit:      batch.Unit,
					Platform:  batch.Platform,
					Reference: fireHydrantReference(raw),
					Reason:    err.Error(),
				})
				continue
			}
			out = append(out, inc)
		}
	}
	return out, skips
}

func normalizeIncidentIO(unit model.BusinessUnit, raw collector.IncidentIOIncident) (model.NormalizedIncident, error) {
	createdAt, err := parseCreatedAt(raw.CreatedAt)
	if err != nil {
		return model.NormalizedIncident{}, err
	}

	inc := model.NormalizedIncident{
		Reference:    incidentIOReference(raw),
		Platform:     model.PlatformIncidentIO,
		BusinessUnit: unit,
		Status:       raw.IncidentStatus.Name,
		Mode:         raw.Mode,
		CreatedAt:    createdAt,
		Raw:          raw,
	}
	if raw.Severity != nil {
		inc.Severity = raw.Severity.Name
	}
	if raw.IncidentType != nil {
		inc.Type = raw.IncidentType.Name
	}
	return inc, nil
}

func normalizeFireHydrant(unit model.BusinessUnit, raw collector.FireHydrantIncident) (model.NormalizedIncident, error) {
	createdAt, err := parseCreatedAt(raw.CreatedAt)
	if err != nil {
		return model.NormalizedIncident{}, err
	}

	inc := model.NormalizedIncident{
		Reference:    fireHydrantReference(raw),
		Platform:     model.PlatformFireHydrant,
		BusinessUnit: unit,
		Status:       raw.CurrentMilestone,
		Severity:     raw.SeverityString(),
		CreatedAt:    createdAt,
		Raw:          raw,
	}
	if raw.IncidentType != nil {
		inc.Type = raw.IncidentType.Name
	}
	return inc, nil
}

func incidentIOReference(raw collector.IncidentIOIncident) string {
	if raw.Reference != "" {
		return raw.Reference
	}
	return shortID(raw.ID)
}

func fireHydrantReference(raw collector.FireHydrantIncident) string {
	if raw.Number > 0 {
		return fmt.Sprintf("#%d", raw.Number)
	}
	return shortID(raw.ID)
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// parseCreatedAt insists on a parsable creation time. Age bucketing hangs
// off this value, so an incident without one is skipped rather than pinned
// to now.
func parseCreatedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing created_at")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}
