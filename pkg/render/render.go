package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

type Renderer interface {
	Render(w io.Writer, report model.Report) error
}

func New(f Format) Renderer {
	switch f {
	case FormatJSON:
		return &jsonRenderer{}
	default:
		return &tableRenderer{}
	}
}

type jsonRenderer struct{}

func (r *jsonRenderer) Render(w io.Writer, report model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type tableRenderer struct{}

func (r *tableRenderer) Render(w io.Writer, report model.Report) error {
	s := report.Summary
	agg := report.Aggregation

	fmt.Fprintf(w, "Missing documentation report\n")
	fmt.Fprintf(w, "Generated: %s\n", s.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Window:    %s to %s (lookback %d days)\n",
		s.WindowStart.UTC().Format("2006-01-02"),
		s.WindowEnd.UTC().Format("2006-01-02"),
		s.LookbackDays,
	)
	fmt.Fprintf(w, "Pipeline:  fetched %d, normalized %d, skipped %d, filtered %d, flagged %d\n",
		s.Fetched, s.Normalized, s.Skipped, s.Filtered, s.Classified)

	if err := section(w, "SCOPE", agg, []model.AggregationRow{agg.Totals}); err != nil {
		return err
	}
	if err := section(w, "BUSINESS UNIT", agg, agg.ByUnit); err != nil {
		return err
	}
	if err := section(w, "PLATFORM", agg, agg.ByPlatform); err != nil {
		return err
	}
	if len(agg.ByField) > 0 {
		if err := section(w, "MISSING FIELD", agg, agg.ByField); err != nil {
			return err
		}
	}

	for _, inc := range report.Incidents {
		age := model.AgeDays(agg.Now, inc.CreatedAt)
		bucket := agg.Boundaries.BucketFor(age)
		fmt.Fprintf(w, "\n--- %s (%s, %s) ---\n", inc.Reference, inc.BusinessUnit, inc.Platform)
		fmt.Fprintf(w, "Status: %s, age %d days (%s)\n", inc.Status, age, agg.Labels[bucket])
		fmt.Fprintf(w, "Missing: %s\n", strings.Join(inc.MissingFields, ", "))
	}
	return nil
}

func section(w io.Writer, title string, agg model.Aggregation, rows []model.AggregationRow) error {
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := append([]string{title}, agg.Labels[:]...)
	fmt.Fprintf(tw, "%s\tTOTAL\tSHARE\n", strings.Join(header, "\t"))

	for _, row := range rows {
		cells := []string{row.Key}
		for i, n := range row.Counts {
			cells = append(cells, bucketCell(n, agg.Available[i]))
		}
		fmt.Fprintf(tw, "%s\t%d\t%s%%\n", strings.Join(cells, "\t"), row.Total, row.Percent)
	}
	return tw.Flush()
}

// bucketCell shows "n/a" for buckets the lookback window cannot populate,
// never a misleading zero.
func bucketCell(n int, available bool) string {
	if !available {
		return "n/a"
	}
	return strconv.Itoa(n)
}
