package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// Unit binds one business unit to its API endpoint and credential. BaseURL
// and APIKeyEnv default per platform when left empty.
type Unit struct {
	Name      string `json:"name"`
	BaseURL   string `json:"baseURL,omitempty"`
	APIKeyEnv string `json:"apiKeyEnv,omitempty"`
}

// Email configures report distribution. SMTP transport settings come from
// the environment, not the file.
type Email struct {
	Enabled       bool     `json:"enabled"`
	From          string   `json:"from"`
	To            []string `json:"to"`
	SubjectPrefix string   `json:"subjectPrefix"`
	ReportURL     string   `json:"reportURL,omitempty"`
}

// Config is one run's effective configuration: defaults merged with a JSON
// override file. It is built once per run and passed by value; nothing reads
// configuration ambiently.
type Config struct {
	LookbackDays            int                            `json:"lookbackDays"`
	IncludeStatuses         map[string][]string            `json:"includeStatuses"`
	IncludeModes            []string                       `json:"includeModes"`
	ExcludeTypeSubstrings   []string                       `json:"excludeTypeSubstrings"`
	EnableSeverityFiltering bool                           `json:"enableSeverityFiltering"`
	IncidentioSeverities    []string                       `json:"incidentioSeverities"`
	FirehydrantSeverities   []string                       `json:"firehydrantSeverities"`
	IncludeInternalImpact   bool                           `json:"includeInternalImpact"`
	CustomStartDate         string                         `json:"customStartDate,omitempty"`
	CustomEndDate           string                         `json:"customEndDate,omitempty"`
	EmailFocusDays          int                            `json:"emailFocusDays"`
	BucketBoundaries        []int                          `json:"bucketBoundaries"`
	RequiredFields          map[string][]string            `json:"requiredFields"`
	Aliases                 map[string]map[string][]string `json:"aliases"`
	Units                   []Unit                         `json:"units"`
	Email                   Email                          `json:"email"`
	ServeAddr               string                         `json:"serveAddr"`
}

var defaultBaseURLs = map[model.Platform]string{
	model.PlatformIncidentIO:  "https://api.incident.io",
	model.PlatformFireHydrant: "https://api.firehydrant.io",
}

var defaultKeyEnvs = map[model.Platform]string{
	model.PlatformIncidentIO:  "INCIDENTIO_API_KEY",
	model.PlatformFireHydrant: "FIREHYDRANT_API_KEY",
}

func Default() Config {
	cfg := Config{
		LookbackDays: 30,
		IncludeStatuses: map[string][]string{
			string(model.PlatformIncidentIO):  {"Stabilized", "Documenting", "Closed"},
			string(model.PlatformFireHydrant): {"resolved", "postmortem_started", "postmortem_completed", "closed"},
		},
		IncludeModes:          []string{"standard", "retrospective"},
		ExcludeTypeSubstrings: []string{"[TEST]"},
		IncludeInternalImpact: true,
		EmailFocusDays:        7,
		BucketBoundaries:      []int{7, 30, 90},
		RequiredFields: map[string][]string{
			string(model.PlatformIncidentIO):  {"Causal Type", "Contributing Factors", "Impact Start", "Stabilized At"},
			string(model.PlatformFireHydrant): {"Market"},
		},
		Units: []Unit{
			{Name: string(model.UnitEMEA)},
			{Name: string(model.UnitNA)},
			{Name: string(model.UnitAPAC)},
		},
		Email: Email{
			SubjectPrefix: "[Missing Fields Report]",
		},
		ServeAddr: ":8080",
	}
	cfg.applyUnitDefaults()
	return cfg
}

// Load returns the defaults with the JSON file at path merged over them.
// An empty path means defaults only. Keys present in the file replace the
// defaults wholesale (lists are not unioned).
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyUnitDefaults()
	return cfg, nil
}

func (c *Config) applyUnitDefaults() {
	for i := range c.Units {
		platform, ok := model.PlatformFor(model.BusinessUnit(c.Units[i].Name))
		if !ok {
			continue
		}
		if c.Units[i].BaseURL == "" {
			c.Units[i].BaseURL = defaultBaseURLs[platform]
		}
		if c.Units[i].APIKeyEnv == "" {
			c.Units[i].APIKeyEnv = defaultKeyEnvs[platform]
		}
	}
}

// Validate checks the fatal preconditions. A config failing here aborts the
// run before any fetch.
func (c Config) Validate() error {
	if len(c.Units) == 0 {
		return fmt.Errorf("no business units configured")
	}
	for _, u := range c.Units {
		if _, ok := model.PlatformFor(model.BusinessUnit(u.Name)); !ok {
			return fmt.Errorf("unknown business unit %q", u.Name)
		}
	}

	for platform := range c.IncludeStatuses {
		if !model.Platform(platform).Valid() {
			return fmt.Errorf("includeStatuses: unknown platform %q", platform)
		}
	}
	for platform := range c.RequiredFields {
		if !model.Platform(platform).Valid() {
			return fmt.Errorf("requiredFields: unknown platform %q", platform)
		}
	}
	for platform := range c.Aliases {
		if !model.Platform(platform).Valid() {
			return fmt.Errorf("aliases: unknown platform %q", platform)
		}
	}

	if !c.Boundaries().Valid() {
		return fmt.Errorf("bucketBoundaries must be three ascending positive day counts, got %v", c.BucketBoundaries)
	}

	hasStart, hasEnd := c.CustomStartDate != "", c.CustomEndDate != ""
	if hasStart != hasEnd {
		return fmt.Errorf("customStartDate and customEndDate must be set together")
	}
	if hasStart {
		start, end, err := c.customWindow()
		if err != nil {
			return err
		}
		if end.Before(start) {
			return fmt.Errorf("customEndDate %s precedes customStartDate %s", c.CustomEndDate, c.CustomStartDate)
		}
	} else if c.LookbackDays <= 0 {
		return fmt.Errorf("lookbackDays must be positive, got %d", c.LookbackDays)
	}

	if c.EmailFocusDays < 0 {
		return fmt.Errorf("emailFocusDays must not be negative, got %d", c.EmailFocusDays)
	}
	if c.Email.Enabled {
		if c.Email.From == "" || len(c.Email.To) == 0 {
			return fmt.Errorf("email enabled but from/to not configured")
		}
	}
	return nil
}

// Boundaries maps the configured day thresholds onto the bucket model,
// falling back to the defaults when unset.
func (c Config) Boundaries() model.Boundaries {
	if len(c.BucketBoundaries) != 3 {
		return model.DefaultBoundaries()
	}
	return model.Boundaries{
		First:  c.BucketBoundaries[0],
		Second: c.BucketBoundaries[1],
		Third:  c.BucketBoundaries[2],
	}
}
