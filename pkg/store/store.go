package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

const DefaultSchema = "missing_fields_report"

const connectTimeout = 12 * time.Second

// ErrNotFound is returned when a run ID has no persisted report.
var ErrNotFound = errors.New("run not found")

var validSchema = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// URLFromEnv resolves the Postgres connection string, most specific env var
// first. Empty when neither is set.
func URLFromEnv() string {
	if url := strings.TrimSpace(os.Getenv("MISSING_FIELDS_REPORT_DB_URL")); url != "" {
		return url
	}
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

func sanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultSchema, nil
	}
	if !validSchema.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

// Store persists report runs in Postgres and reads them back for the report
// API. One Store wraps one connection pool.
type Store struct {
	db     *sql.DB
	schema string
}

// Open connects and pings within a bounded timeout so a wrong URL fails the
// run promptly instead of hanging it.
func Open(ctx context.Context, url, schema string) (*Store, error) {
	schema, err := sanitizeSchema(schema)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, schema: schema}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the schema and tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema)); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.report_runs (
				id uuid PRIMARY KEY,
				generated_at timestamptz NOT NULL,
				window_start timestamptz NOT NULL,
				window_end timestamptz NOT NULL,
				lookback_days integer NOT NULL,
				boundary_first integer NOT NULL,
				boundary_second integer NOT NULL,
				boundary_third integer NOT NULL,
				fetched integer NOT NULL,
				normalized integer NOT NULL,
				skipped integer NOT NULL,
				drop_status integer NOT NULL,
				drop_type integer NOT NULL,
				drop_mode integer NOT NULL,
				drop_severity integer NOT NULL,
				drop_window integer NOT NULL,
				filtered integer NOT NULL,
				classified integer NOT NULL,
				grand_total integer NOT NULL,
				created_at timestamptz NOT NULL DEFAULT now()
			)`, s.schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.report_incidents (
				id uuid PRIMARY KEY,
				run_id uuid NOT NULL REFERENCES %s.report_runs(id) ON DELETE CASCADE,
				ord integer NOT NULL,
				reference text NOT NULL,
				platform text NOT NULL,
				business_unit text NOT NULL,
				status text NOT NULL,
				mode text,
				severity text,
				incident_created_at timestamptz NOT NULL,
				age_days integer NOT NULL,
				bucket_label text NOT NULL,
				missing_fields text NOT NULL
			)`, s.schema, s.schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.report_rows (
				id uuid PRIMARY KEY,
				run_id uuid NOT NULL REFERENCES %s.report_runs(id) ON DELETE CASCADE,
				dimension text NOT NULL,
				ord integer NOT NULL,
				key text NOT NULL,
				bucket_0 integer NOT NULL,
				bucket_1 integer NOT NULL,
				bucket_2 integer NOT NULL,
				bucket_3 integer NOT NULL,
				total integer NOT NULL,
				percent text NOT NULL
			)`, s.schema, s.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_report_incidents_run_idx ON %s.report_incidents (run_id)`, s.schema, s.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_report_rows_run_idx ON %s.report_rows (run_id)`, s.schema, s.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_report_runs_generated_idx ON %s.report_runs (generated_at DESC)`, s.schema, s.schema),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun writes one report in a single transaction and returns the run ID.
func (s *Store) SaveRun(ctx context.Context, report model.Report) (string, error) {
	runID := uuid.New()
	sum := report.Summary
	agg := report.Aggregation
	b := agg.Boundaries

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.report_runs (
			id, generated_at, window_start, window_end, lookback_days,
			boundary_first, boundary_second, boundary_third,
			fetched, normalized, skipped,
			drop_status, drop_type, drop_mode, drop_severity, drop_window,
			filtered, classified, grand_total
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,
			$9,$10,$11,
			$12,$13,$14,$15,$16,
			$17,$18,$19
		)`, s.schema),
		runID, sum.GeneratedAt, sum.WindowStart, sum.WindowEnd, sum.LookbackDays,
		b.First, b.Second, b.Third,
		sum.Fetched, sum.Normalized, sum.Skipped,
		sum.Drops.Status, sum.Drops.Type, sum.Drops.Mode, sum.Drops.Severity, sum.Drops.Window,
		sum.Filtered, sum.Classified, agg.GrandTotal,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	insertIncident := fmt.Sprintf(`
		INSERT INTO %s.report_incidents (
			id, run_id, ord, reference, platform, business_unit,
			status, mode, severity, incident_created_at,
			age_days, bucket_label, missing_fields
		) VALUES (
			$1,$2,$3,$4,$5,$6,
			$7,$8,$9,$10,
			$11,$12,$13
		)`, s.schema)
	for i, inc := range report.Incidents {
		age := model.AgeDays(agg.Now, inc.CreatedAt)
		_, err = tx.ExecContext(ctx, insertIncident,
			uuid.New(), runID, i, inc.Reference, string(inc.Platform), string(inc.BusinessUnit),
			inc.Status, nullString(inc.Mode), nullString(inc.Severity), inc.CreatedAt,
			age, agg.Labels[b.BucketFor(age)], strings.Join(inc.MissingFields, ","),
		)
		if err != nil {
			return "", fmt.Errorf("insert incident %s: %w", inc.Reference, err)
		}
	}

	insertRow := fmt.Sprintf(`
		INSERT INTO %s.report_rows (
			id, run_id, dimension, ord, key,
			bucket_0, bucket_1, bucket_2, bucket_3, total, percent
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,$11
		)`, s.schema)
	for _, group := range []struct {
		dimension string
		rows      []model.AggregationRow
	}{
		{"total", []model.AggregationRow{agg.Totals}},
		{"unit", agg.ByUnit},
		{"platform", agg.ByPlatform},
		{"field", agg.ByField},
	} {
		for i, row := range group.rows {
			_, err = tx.ExecContext(ctx, insertRow,
				uuid.New(), runID, group.dimension, i, row.Key,
				row.Counts[0], row.Counts[1], row.Counts[2], row.Counts[3],
				row.Total, row.Percent,
			)
			if err != nil {
				return "", fmt.Errorf("insert %s row %s: %w", group.dimension, row.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return runID.String(), nil
}

// RunMeta is the run-list view: enough to pick a run without loading it.
type RunMeta struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
	Classified  int       `json:"classified"`
	GrandTotal  int       `json:"grandTotal"`
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, generated_at, window_start, window_end, classified, grand_total
		FROM %s.report_runs
		ORDER BY generated_at DESC
		LIMIT $1`, s.schema), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		var m RunMeta
		if err := rows.Scan(&m.ID, &m.GeneratedAt, &m.WindowStart, &m.WindowEnd, &m.Classified, &m.GrandTotal); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, m)
	}
	return runs, rows.Err()
}

// LatestRunID returns the ID of the most recent run.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id FROM %s.report_runs ORDER BY generated_at DESC LIMIT 1`, s.schema)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}

// LoadReport reconstructs one persisted report. Raw payloads are not
// persisted, so reloaded incidents carry no custom-field store.
func (s *Store) LoadReport(ctx context.Context, runID string) (model.Report, error) {
	var (
		report model.Report
		b      model.Boundaries
		drops  model.FilterDrops
		grand  int
	)
	sum := &report.Summary
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT generated_at, window_start, window_end, lookback_days,
			boundary_first, boundary_second, boundary_third,
			fetched, normalized, skipped,
			drop_status, drop_type, drop_mode, drop_severity, drop_window,
			filtered, classified, grand_total
		FROM %s.report_runs WHERE id = $1`, s.schema), runID).Scan(
		&sum.GeneratedAt, &sum.WindowStart, &sum.WindowEnd, &sum.LookbackDays,
		&b.First, &b.Second, &b.Third,
		&sum.Fetched, &sum.Normalized, &sum.Skipped,
		&drops.Status, &drops.Type, &drops.Mode, &drops.Severity, &drops.Window,
		&sum.Filtered, &sum.Classified, &grand,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Report{}, ErrNotFound
	}
	if err != nil {
		return model.Report{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	sum.Drops = drops

	report.Incidents, err = s.loadIncidents(ctx, runID)
	if err != nil {
		return model.Report{}, err
	}

	agg := model.Aggregation{
		Now:        sum.GeneratedAt,
		Boundaries: b,
		Labels:     b.Labels(),
		Available:  b.Available(sum.LookbackDays),
		GrandTotal: grand,
	}
	if err := s.loadRows(ctx, runID, &agg); err != nil {
		return model.Report{}, err
	}
	report.Aggregation = agg
	return report, nil
}

func (s *Store) loadIncidents(ctx context.Context, runID string) ([]model.ClassifiedIncident, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT reference, platform, business_unit, status, mode, severity,
			incident_created_at, missing_fields
		FROM %s.report_incidents WHERE run_id = $1 ORDER BY ord`, s.schema), runID)
	if err != nil {
		return nil, fmt.Errorf("load incidents: %w", err)
	}
	defer rows.Close()

	var incidents []model.ClassifiedIncident
	for rows.Next() {
		var (
			inc            model.ClassifiedIncident
			platform, unit string
			mode, severity sql.NullString
			missing        string
		)
		if err := rows.Scan(&inc.Reference, &platform, &unit, &inc.Status, &mode, &severity, &inc.CreatedAt, &missing); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.Platform = model.Platform(platform)
		inc.BusinessUnit = model.BusinessUnit(unit)
		inc.Mode = mode.String
		inc.Severity = severity.String
		inc.MissingFields = strings.Split(missing, ",")
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

func (s *Store) loadRows(ctx context.Context, runID string, agg *model.Aggregation) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT dimension, key, bucket_0, bucket_1, bucket_2, bucket_3, total, percent
		FROM %s.report_rows WHERE run_id = $1 ORDER BY dimension, ord`, s.schema), runID)
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dimension string
			row       model.AggregationRow
		)
		if err := rows.Scan(&dimension, &row.Key, &row.Counts[0], &row.Counts[1], &row.Counts[2], &row.Counts[3], &row.Total, &row.Percent); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		switch dimension {
		case "total":
			agg.Totals = row
		case "unit":
			agg.ByUnit = append(agg.ByUnit, row)
		case "platform":
			agg.ByPlatform = append(agg.ByPlatform, row)
		case "field":
			agg.ByField = append(agg.ByField, row)
		}
	}
	return rows.Err()
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
