package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// maxPages caps pagination per fetch so a misbehaving cursor or a runaway
// incident count cannot loop the collector forever.
const maxPages = 50

// Source binds one business unit to the client for its platform. Exactly one
// of the two clients is set, matching the platform tag.
type Source struct {
	Unit        model.BusinessUnit
	Platform    model.Platform
	IncidentIO  *IncidentIOClient
	FireHydrant *FireHydrantClient
}

// Batch carries one unit's raw incidents. The platform tag says which of the
// two slices is populated; downstream narrowing switches on it exhaustively.
type Batch struct {
	Unit        model.BusinessUnit
	Platform    model.Platform
	IncidentIO  []IncidentIOIncident
	FireHydrant []FireHydrantIncident
}

// Len returns how many raw incidents the batch holds.
func (b Batch) Len() int {
	switch b.Platform {
	case model.PlatformIncidentIO:
		return len(b.IncidentIO)
	case model.PlatformFireHydrant:
		return len(b.FireHydrant)
	default:
		return 0
	}
}

// Collect fetches every source's incidents created since the given time.
// Any source failing aborts the whole collection: an audit built on a
// partially fetched incident set would under-count missing documentation,
// which is worse than producing no report.
func Collect(ctx context.Context, sources []Source, since time.Time) ([]Batch, error) {
	batches := make([]Batch, 0, len(sources))
	for _, src := range sources {
		switch src.Platform {
		case model.PlatformIncidentIO:
			if src.IncidentIO == nil {
				return nil, fmt.Errorf("unit %s: no incident.io client configured", src.Unit)
			}
			incidents, err := src.IncidentIO.FetchIncidents(ctx, since)
			if err != nil {
				return nil, fmt.Errorf("fetch %s incidents: %w", src.Unit, err)
			}
			batches = append(batches, Batch{Unit: src.Unit, Platform: src.Platform, IncidentIO: incidents})
		case model.PlatformFireHydrant:
			if src.FireHydrant == nil {
				return nil, fmt.Errorf("unit %s: no FireHydrant client configured", src.Unit)
			}
			incidents, err := src.FireHydrant.FetchIncidents(ctx, since)
			if err != nil {
				return nil, fmt.Errorf("fetch %s incidents: %w", src.Unit, err)
			}
			batches = append(batches, Batch{Unit: src.Unit, Platform: src.Platform, FireHydrant: incidents})
		default:
			return nil, fmt.Errorf("unit %s: unsupported platform %q", src.Unit, src.Platform)
		}
	}
	return batches, nil
}
