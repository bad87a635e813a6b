package audit

import (
	"regexp"
	"strings"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// Criteria carries every inclusion rule the filter applies, already resolved
// to concrete values (the window is a pair of instants, not a lookback).
type Criteria struct {
	Statuses              map[model.Platform][]string
	Modes                 []string
	ExcludeTypeSubstrings []string
	SeverityFiltering     bool
	Severities            map[model.Platform][]string
	IncludeInternalImpact bool
	WindowStart           time.Time
	WindowEnd             time.Time
}

var leadingSevToken = regexp.MustCompile(`^SEV\d+`)

// Filter applies the predicates in fixed order and tallies what each stage
// dropped. Every predicate is independent; order only decides which stage a
// multiply-excluded incident is counted against.
func Filter(incidents []model.NormalizedIncident, c Criteria) ([]model.NormalizedIncident, model.FilterDrops) {
	var drops model.FilterDrops
	out := make([]model.NormalizedIncident, 0, len(incidents))

	for _, inc := range incidents {
		switch {
		case !statusIncluded(inc, c.Statuses):
			drops.Status++
		case typeExcluded(inc, c.ExcludeTypeSubstrings):
			drops.Type++
		case !modeIncluded(inc, c.Modes):
			drops.Mode++
		case !severityIncluded(inc, c):
			drops.Severity++
		case !inWindow(inc, c.WindowStart, c.WindowEnd):
			drops.Window++
		default:
			out = append(out, inc)
		}
	}
	return out, drops
}

// statusIncluded keeps incidents whose status is allow-listed for their
// platform. A platform with no configured list keeps nothing.
func statusIncluded(inc model.NormalizedIncident, statuses map[model.Platform][]string) bool {
	allowed, ok := statuses[inc.Platform]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if inc.Status == s {
			return true
		}
	}
	return false
}

func typeExcluded(inc model.NormalizedIncident, substrings []string) bool {
	for _, sub := range substrings {
		if sub != "" && strings.Contains(inc.Type, sub) {
			return true
		}
	}
	return false
}

// modeIncluded applies only to incident.io: FireHydrant does not model an
// incident mode, so its incidents pass unconditionally.
func modeIncluded(inc model.NormalizedIncident, modes []string) bool {
	if inc.Platform != model.PlatformIncidentIO {
		return true
	}
	for _, m := range modes {
		if inc.Mode == m {
			return true
		}
	}
	return false
}

// severityIncluded keeps exact allow-list matches. For incident.io a
// severity like "SEV2 (Internal Impact)" also passes when internal-impact
// inclusion is on, its leading SEVn token is allow-listed and the string
// carries the internal-impact marker. Missing severity never passes while
// the gate is on.
func severityIncluded(inc model.NormalizedIncident, c Criteria) bool {
	if !c.SeverityFiltering {
		return true
	}

	sev := strings.TrimSpace(inc.Severity)
	if sev == "" {
		return false
	}

	allowed := c.Severities[inc.Platform]
	for _, s := range allowed {
		if sev == s {
			return true
		}
	}

	if inc.Platform == model.PlatformIncidentIO && c.IncludeInternalImpact {
		token := leadingSevToken.FindString(sev)
		if token == "" || !strings.Contains(strings.ToLower(sev), "internal impact") {
			return false
		}
		for _, s := range allowed {
			if token == s {
				return true
			}
		}
	}
	return false
}

// inWindow keeps incidents created within [start, end], both bounds
// inclusive.
func inWindow(inc model.NormalizedIncident, start, end time.Time) bool {
	return !inc.CreatedAt.Before(start) && !inc.CreatedAt.After(end)
}
