package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// IncidentIOClient fetches incidents from one incident.io workspace via the
// v2 REST API (bearer auth, cursor pagination).
type IncidentIOClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewIncidentIOClient(baseURL, apiKey string) *IncidentIOClient {
	return &IncidentIOClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// IncidentIOIncident is the raw v2 incident payload, kept close to the wire
// shape so custom-field lookups can probe everything the API returned.
type IncidentIOIncident struct {
	ID                      string                   `json:"id"`
	Reference               string                   `json:"reference"`
	Name                    string                   `json:"name"`
	CreatedAt               string                   `json:"created_at"`
	Mode                    string                   `json:"mode"`
	IncidentStatus          NamedRef                 `json:"incident_status"`
	Severity                *NamedRef                `json:"severity,omitempty"`
	IncidentType            *NamedRef                `json:"incident_type,omitempty"`
	CustomFieldEntries      []CustomFieldEntry       `json:"custom_field_entries,omitempty"`
	IncidentTimestampValues []IncidentTimestampValue `json:"incident_timestamp_values,omitempty"`
}

// NamedRef is the id/name pair incident.io nests for statuses, severities
// and types.
type NamedRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// CustomFieldEntry is one custom field definition plus its recorded values.
// Entries keep API order; a field may carry several values (multi-select).
type CustomFieldEntry struct {
	CustomField NamedRef           `json:"custom_field"`
	Values      []CustomFieldValue `json:"values"`
}

// CustomFieldValue sets exactly one of its members depending on field type.
type CustomFieldValue struct {
	ValueText         string        `json:"value_text,omitempty"`
	ValueNumeric      string        `json:"value_numeric,omitempty"`
	ValueLink         string        `json:"value_link,omitempty"`
	ValueOption       *OptionValue  `json:"value_option,omitempty"`
	ValueCatalogEntry *CatalogValue `json:"value_catalog_entry,omitempty"`
}

type OptionValue struct {
	Value string `json:"value"`
}

type CatalogValue struct {
	Name string `json:"name"`
}

// text flattens a value entry to its display string, whichever member is set.
func (v CustomFieldValue) text() string {
	switch {
	case v.ValueText != "":
		return v.ValueText
	case v.ValueOption != nil:
		return v.ValueOption.Value
	case v.ValueCatalogEntry != nil:
		return v.ValueCatalogEntry.Name
	case v.ValueLink != "":
		return v.ValueLink
	default:
		return v.ValueNumeric
	}
}

// IncidentTimestampValue is one lifecycle timestamp. The API lists every
// configured timestamp; Value stays null until someone records it.
type IncidentTimestampValue struct {
	IncidentTimestamp NamedRef        `json:"incident_timestamp"`
	Value             *TimestampValue `json:"value,omitempty"`
}

type TimestampValue struct {
	Value string `json:"value"`
}

// CustomFieldValues returns every value recorded under the named custom
// field, in API order. Blank values are kept; the resolver decides presence.
func (i IncidentIOIncident) CustomFieldValues(name string) []string {
	var vals []string
	for _, entry := range i.CustomFieldEntries {
		if entry.CustomField.Name != name {
			continue
		}
		for _, v := range entry.Values {
			vals = append(vals, v.text())
		}
	}
	return vals
}

// TimestampValue returns the recorded value of the named lifecycle timestamp.
// Names match case-insensitively. A timestamp the workspace defines but
// nobody recorded reports ok=false.
func (i IncidentIOIncident) TimestampValue(name string) (string, bool) {
	for _, tv := range i.IncidentTimestampValues {
		if !strings.EqualFold(tv.IncidentTimestamp.Name, name) {
			continue
		}
		if tv.Value == nil {
			return "", false
		}
		return tv.Value.Value, true
	}
	return "", false
}

type incidentIOListResponse struct {
	Incidents      []IncidentIOIncident `json:"incidents"`
	PaginationMeta struct {
		After            string `json:"after,omitempty"`
		PageSize         int    `json:"page_size"`
		TotalRecordCount int    `json:"total_record_count,omitempty"`
	} `json:"pagination_meta"`
}

// FetchIncidents pages through /v2/incidents, newest cursor first, keeping
// only incidents created at or after since (the API filters server-side; the
// audit window is enforced again downstream).
func (c *IncidentIOClient) FetchIncidents(ctx context.Context, since time.Time) ([]IncidentIOIncident, error) {
	var out []IncidentIOIncident
	after := ""

	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("page_size", "250")
		if !since.IsZero() {
			q.Set("created_at[gte]", since.UTC().Format(time.RFC3339))
		}
		if after != "" {
			q.Set("after", after)
		}

		var resp incidentIOListResponse
		if err := c.get(ctx, "/v2/incidents?"+q.Encode(), &resp); err != nil {
			return nil, err
		}

		out = append(out, resp.Incidents...)
		if resp.PaginationMeta.After == "" || len(resp.Incidents) == 0 {
			return out, nil
		}
		after = resp.PaginationMeta.After
	}
	return nil, fmt.Errorf("incident.io: pagination exceeded %d pages", maxPages)
}

func (c *IncidentIOClient) get(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("incident.io: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("incident.io: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("incident.io: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("incident.io: decode response: %w", err)
	}
	return nil
}
