package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FireHydrantClient fetches incidents from one FireHydrant organization via
// the v1 REST API (token auth, page-numbered pagination).
type FireHydrantClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewFireHydrantClient(baseURL, apiKey string) *FireHydrantClient {
	return &FireHydrantClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FireHydrantIncident is the raw v1 incident payload. Severity and custom
// field values arrive as either bare strings or wrapper objects depending on
// organization settings, so both stay raw until someone asks for them.
type FireHydrantIncident struct {
	ID               string                     `json:"id"`
	Name             string                     `json:"name"`
	Number           int                        `json:"number"`
	CreatedAt        string                     `json:"created_at"`
	CurrentMilestone string                     `json:"current_milestone"`
	Severity         json.RawMessage            `json:"severity,omitempty"`
	IncidentType     *NamedRef                  `json:"incident_type,omitempty"`
	CustomFields     map[string]json.RawMessage `json:"custom_fields,omitempty"`
}

// SeverityString unwraps the severity member, which comes back as "SEV1" in
// some organizations and {"slug": "sev1", ...} in others.
func (i FireHydrantIncident) SeverityString() string {
	return unwrapScalar(i.Severity)
}

// CustomFieldValues returns the values stored under the given custom-field
// key. List-valued fields yield one entry per element.
func (i FireHydrantIncident) CustomFieldValues(name string) []string {
	raw, ok := i.CustomFields[name]
	if !ok {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err == nil {
		var vals []string
		for _, e := range elems {
			vals = append(vals, unwrapScalar(e))
		}
		return vals
	}
	return []string{unwrapScalar(raw)}
}

// TimestampValue reports false for every name: FireHydrant tracks lifecycle
// through milestones, not named timestamp values.
func (i FireHydrantIncident) TimestampValue(string) (string, bool) {
	return "", false
}

// unwrapScalar flattens a raw JSON value to display text. Objects are probed
// for the usual wrapper keys; anything unrecognized flattens to empty.
func unwrapScalar(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"value", "name", "slug"} {
			if inner, ok := obj[key]; ok {
				if v := unwrapScalar(inner); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

type fireHydrantListResponse struct {
	Data       []FireHydrantIncident `json:"data"`
	Pagination struct {
		Count int `json:"count"`
		Page  int `json:"page"`
		Pages int `json:"pages"`
	} `json:"pagination"`
}

// FetchIncidents pages through /v1/incidents for incidents created at or
// after since.
func (c *FireHydrantClient) FetchIncidents(ctx context.Context, since time.Time) ([]FireHydrantIncident, error) {
	var out []FireHydrantIncident

	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", "100")
		if !since.IsZero() {
			q.Set("start_date", since.UTC().Format("2006-01-02"))
		}

		var resp fireHydrantListResponse
		if err := c.get(ctx, "/v1/incidents?"+q.Encode(), &resp); err != nil {
			return nil, err
		}

		out = append(out, resp.Data...)
		if resp.Pagination.Pages == 0 || page >= resp.Pagination.Pages || len(resp.Data) == 0 {
			return out, nil
		}
	}
	return nil, fmt.Errorf("firehydrant: pagination exceeded %d pages", maxPages)
}

func (c *FireHydrantClient) get(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("firehydrant: build request: %w", err)
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("firehydrant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("firehydrant: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("firehydrant: decode response: %w", err)
	}
	return nil
}
