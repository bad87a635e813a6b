package audit

import (
	"strings"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// Logical fields resolved from the timestamps collection instead of custom
// fields.
const (
	FieldImpactStart  = "Impact Start"
	FieldStabilizedAt = "Stabilized At"
)

var impactStartNames = []string{
	"Impact started",
	"Impact Start",
}

var stabilizedNames = []string{
	"Stabilized",
	"Stabilized at",
}

// AliasMap orders, per platform, the raw field names to probe for a logical
// field. Earlier aliases win.
type AliasMap map[model.Platform]map[string][]string

func DefaultAliases() AliasMap {
	return AliasMap{
		model.PlatformIncidentIO: {
			"Causal Type":          {"Causal Type", "Causal type"},
			"Contributing Factors": {"Contributing Factors", "Contributing factors"},
		},
		model.PlatformFireHydrant: {
			"Market": {"market", "impacted_market"},
		},
	}
}

// RequiredFields orders, per platform, the logical fields an incident must
// carry to count as fully documented.
type RequiredFields map[model.Platform][]string

func DefaultRequiredFields() RequiredFields {
	return RequiredFields{
		model.PlatformIncidentIO:  {"Causal Type", "Contributing Factors", FieldImpactStart, FieldStabilizedAt},
		model.PlatformFireHydrant: {"Market"},
	}
}

// Resolver answers what value an incident carries for a logical field,
// bridging the two platforms' raw layouts.
type Resolver struct {
	Aliases AliasMap
}

func NewResolver(aliases AliasMap) *Resolver {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Resolver{Aliases: aliases}
}

// Resolve returns the trimmed value of the logical field, "" when blank or
// absent. Unknown logical names degrade to the platform's derived raw name
// and come back blank rather than erroring.
//
// Two fields read the timestamps collection instead: "Impact Start", which
// falls back to the incident's creation time when never recorded (incidents
// predate the dedicated timestamp), and "Stabilized At", which has no
// fallback because an unrecorded stabilization is exactly what the audit is
// looking for.
func (r *Resolver) Resolve(inc model.NormalizedIncident, field string) string {
	switch field {
	case FieldImpactStart:
		if v, ok := timestampLookup(inc.Raw, impactStartNames); ok {
			return v
		}
		return inc.CreatedAt.UTC().Format(time.RFC3339)
	case FieldStabilizedAt:
		v, _ := timestampLookup(inc.Raw, stabilizedNames)
		return v
	}

	if inc.Raw == nil {
		return ""
	}
	for _, alias := range r.aliasesFor(inc.Platform, field) {
		for _, candidate := range inc.Raw.CustomFieldValues(alias) {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func (r *Resolver) aliasesFor(platform model.Platform, field string) []string {
	if byField, ok := r.Aliases[platform]; ok {
		if aliases, ok := byField[field]; ok && len(aliases) > 0 {
			return aliases
		}
	}
	return []string{derivedRawName(platform, field)}
}

// derivedRawName guesses the raw name for a logical field nobody aliased:
// FireHydrant keys custom fields in snake_case, incident.io names them like
// the logical name.
func derivedRawName(platform model.Platform, field string) string {
	if platform == model.PlatformFireHydrant {
		return strings.ReplaceAll(strings.ToLower(field), " ", "_")
	}
	return field
}

func timestampLookup(raw model.RawFields, names []string) (string, bool) {
	if raw == nil {
		return "", false
	}
	for _, name := range names {
		if v, ok := raw.TimestampValue(name); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}
