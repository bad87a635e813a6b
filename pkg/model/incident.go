package model

import "time"

// Platform identifies which incident management tool a record came from.
type Platform string

const (
	PlatformIncidentIO  Platform = "incidentio"
	PlatformFireHydrant Platform = "firehydrant"
)

// AllPlatforms lists every supported platform in reporting order.
var AllPlatforms = []Platform{PlatformIncidentIO, PlatformFireHydrant}

func (p Platform) Valid() bool {
	switch p {
	case PlatformIncidentIO, PlatformFireHydrant:
		return true
	default:
		return false
	}
}

// BusinessUnit is one of the organizational partitions covered by the audit.
// Each unit sources its incidents from exactly one platform.
type BusinessUnit string

const (
	UnitEMEA BusinessUnit = "EMEA"
	UnitNA   BusinessUnit = "NA"
	UnitAPAC BusinessUnit = "APAC"
)

// AllBusinessUnits lists every unit in reporting order.
var AllBusinessUnits = []BusinessUnit{UnitEMEA, UnitNA, UnitAPAC}

var unitPlatforms = map[BusinessUnit]Platform{
	UnitEMEA: PlatformIncidentIO,
	UnitNA:   PlatformIncidentIO,
	UnitAPAC: PlatformFireHydrant,
}

// PlatformFor returns the platform a business unit's incidents live on.
func PlatformFor(u BusinessUnit) (Platform, bool) {
	p, ok := unitPlatforms[u]
	return p, ok
}

// RawFields is the probe surface the field resolver uses to look up values
// the normalizer did not promote to top-level attributes. Implementations
// wrap the original vendor payload: incident.io stores custom fields as an
// ordered entry list and timestamps in a separate collection; FireHydrant
// stores custom fields as a keyed map and has no timestamp collection.
type RawFields interface {
	// CustomFieldValues returns every candidate value stored under the given
	// raw field name, in storage order. Blank candidates are included; the
	// resolver decides what counts as present.
	CustomFieldValues(name string) []string
	// TimestampValue returns the value recorded under the named lifecycle
	// timestamp, matched case-insensitively. ok is false when the payload has
	// no such timestamp (or no timestamp collection at all).
	TimestampValue(name string) (string, bool)
}

// NormalizedIncident is the common shape both platforms normalize into.
// Values are fixed at normalization time; nothing mutates them afterwards.
type NormalizedIncident struct {
	Reference    string       `json:"reference"`
	Platform     Platform     `json:"platform"`
	BusinessUnit BusinessUnit `json:"businessUnit"`
	Status       string       `json:"status"`
	Mode         string       `json:"mode,omitempty"`
	Type         string       `json:"type,omitempty"`
	Severity     string       `json:"severity,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`

	// Raw retains the vendor payload for custom-field lookups. Not serialized.
	Raw RawFields `json:"-"`
}

// ClassifiedIncident pairs an incident with the required fields it is
// missing. The classifier only emits incidents with at least one missing
// field, so MissingFields is never empty.
type ClassifiedIncident struct {
	NormalizedIncident
	MissingFields []string `json:"missingFields"`
}
