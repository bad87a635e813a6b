package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/audit"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/collector"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

const dateLayout = "2006-01-02"

// Window derives the audit window. An explicit date override pair wins;
// otherwise the window reaches back LookbackDays from now. Both bounds are
// inclusive, so an override end date covers the whole named day.
func (c Config) Window(now time.Time) (time.Time, time.Time, error) {
	if c.CustomStartDate != "" || c.CustomEndDate != "" {
		return c.customWindow()
	}
	return now.AddDate(0, 0, -c.LookbackDays), now, nil
}

func (c Config) customWindow() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, c.CustomStartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse customStartDate: %w", err)
	}
	end, err := time.Parse(dateLayout, c.CustomEndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse customEndDate: %w", err)
	}
	end = end.Add(24*time.Hour - time.Second)
	return start, end, nil
}

// AuditParams assembles the audit pipeline's inputs from this config.
func (c Config) AuditParams(now time.Time) (audit.Params, error) {
	start, end, err := c.Window(now)
	if err != nil {
		return audit.Params{}, err
	}

	return audit.Params{
		Criteria: audit.Criteria{
			Statuses:              platformLists(c.IncludeStatuses),
			Modes:                 c.IncludeModes,
			ExcludeTypeSubstrings: c.ExcludeTypeSubstrings,
			SeverityFiltering:     c.EnableSeverityFiltering,
			Severities: map[model.Platform][]string{
				model.PlatformIncidentIO:  c.IncidentioSeverities,
				model.PlatformFireHydrant: c.FirehydrantSeverities,
			},
			IncludeInternalImpact: c.IncludeInternalImpact,
			WindowStart:           start,
			WindowEnd:             end,
		},
		Required:     audit.RequiredFields(platformLists(c.RequiredFields)),
		Aliases:      c.aliasMap(),
		Boundaries:   c.Boundaries(),
		LookbackDays: c.LookbackDays,
	}, nil
}

func platformLists(in map[string][]string) map[model.Platform][]string {
	out := make(map[model.Platform][]string, len(in))
	for platform, list := range in {
		out[model.Platform(platform)] = list
	}
	return out
}

func (c Config) aliasMap() audit.AliasMap {
	if len(c.Aliases) == 0 {
		return audit.DefaultAliases()
	}
	out := make(audit.AliasMap, len(c.Aliases))
	for platform, byField := range c.Aliases {
		fields := make(map[string][]string, len(byField))
		for field, aliases := range byField {
			fields[field] = aliases
		}
		out[model.Platform(platform)] = fields
	}
	return out
}

// Sources resolves every unit's client. A unit whose API key env var is
// unset or empty is a fatal precondition: the run aborts here, before any
// fetch.
func (c Config) Sources() ([]collector.Source, error) {
	sources := make([]collector.Source, 0, len(c.Units))
	for _, u := range c.Units {
		unit := model.BusinessUnit(u.Name)
		platform, ok := model.PlatformFor(unit)
		if !ok {
			return nil, fmt.Errorf("unknown business unit %q", u.Name)
		}

		key := os.Getenv(u.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("unit %s: credential env %s is not set", u.Name, u.APIKeyEnv)
		}

		src := collector.Source{Unit: unit, Platform: platform}
		switch platform {
		case model.PlatformIncidentIO:
			src.IncidentIO = collector.NewIncidentIOClient(u.BaseURL, key)
		case model.PlatformFireHydrant:
			src.FireHydrant = collector.NewFireHydrantClient(u.BaseURL, key)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
