package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// EmailOptions shape the emailed report around one audience: SubjectPrefix
// tags the subject line, ReportURL links the persisted report, FocusDays
// bounds the recent-incident section.
type EmailOptions struct {
	SubjectPrefix string
	ReportURL     string
	FocusDays     int
}

// Email renders the report into a subject line and an HTML body. The focus
// section lists incidents no older than FocusDays, the ones whose
// documentation can still be completed from fresh memory.
func Email(report model.Report, opts EmailOptions) (string, string, error) {
	subject := strings.TrimSpace(fmt.Sprintf("%s %d incidents missing documentation (%s)",
		opts.SubjectPrefix,
		report.Aggregation.GrandTotal,
		report.Summary.GeneratedAt.UTC().Format("2006-01-02"),
	))

	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, buildEmailData(report, opts)); err != nil {
		return "", "", fmt.Errorf("render email: %w", err)
	}
	return subject, buf.String(), nil
}

type emailData struct {
	GeneratedAt string
	WindowStart string
	WindowEnd   string
	GrandTotal  int
	Skipped     int
	Labels      []string
	Sections    []emailSection
	FocusDays   int
	Focus       []emailFocusRow
	ReportURL   string
}

type emailSection struct {
	Title string
	Rows  []emailRow
}

type emailRow struct {
	Key     string
	Cells   []string
	Total   int
	Percent string
}

type emailFocusRow struct {
	Reference string
	Unit      string
	AgeDays   int
	Missing   string
}

func buildEmailData(report model.Report, opts EmailOptions) emailData {
	agg := report.Aggregation
	s := report.Summary

	data := emailData{
		GeneratedAt: s.GeneratedAt.UTC().Format(time.RFC3339),
		WindowStart: s.WindowStart.UTC().Format("2006-01-02"),
		WindowEnd:   s.WindowEnd.UTC().Format("2006-01-02"),
		GrandTotal:  agg.GrandTotal,
		Skipped:     s.Skipped,
		Labels:      agg.Labels[:],
		FocusDays:   opts.FocusDays,
		ReportURL:   opts.ReportURL,
	}

	data.Sections = []emailSection{
		{Title: "Totals", Rows: emailRows(agg, []model.AggregationRow{agg.Totals})},
		{Title: "By business unit", Rows: emailRows(agg, agg.ByUnit)},
		{Title: "By platform", Rows: emailRows(agg, agg.ByPlatform)},
	}
	if len(agg.ByField) > 0 {
		data.Sections = append(data.Sections, emailSection{Title: "By missing field", Rows: emailRows(agg, agg.ByField)})
	}

	for _, inc := range report.Incidents {
		age := model.AgeDays(agg.Now, inc.CreatedAt)
		if age > opts.FocusDays {
			continue
		}
		data.Focus = append(data.Focus, emailFocusRow{
			Reference: inc.Reference,
			Unit:      string(inc.BusinessUnit),
			AgeDays:   age,
			Missing:   strings.Join(inc.MissingFields, ", "),
		})
	}
	sort.SliceStable(data.Focus, func(i, j int) bool {
		if data.Focus[i].AgeDays != data.Focus[j].AgeDays {
			return data.Focus[i].AgeDays < data.Focus[j].AgeDays
		}
		return data.Focus[i].Reference < data.Focus[j].Reference
	})

	return data
}

func emailRows(agg model.Aggregation, rows []model.AggregationRow) []emailRow {
	out := make([]emailRow, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row.Counts))
		for i, n := range row.Counts {
			cells = append(cells, bucketCell(n, agg.Available[i]))
		}
		out = append(out, emailRow{Key: row.Key, Cells: cells, Total: row.Total, Percent: row.Percent})
	}
	return out
}

var emailTmpl = template.Must(template.New("email").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #24292f;">
<h2>Missing documentation report</h2>
<p>
Window {{.WindowStart}} to {{.WindowEnd}}, generated {{.GeneratedAt}}.<br>
<strong>{{.GrandTotal}}</strong> incidents are missing required documentation fields.
{{- if gt .Skipped 0}}<br>{{.Skipped}} records were skipped during normalization.{{- end}}
</p>
{{- range .Sections}}
<h3>{{.Title}}</h3>
<table border="1" cellpadding="4" cellspacing="0" style="border-collapse: collapse;">
<tr><th align="left">Scope</th>{{range $.Labels}}<th>{{.}}</th>{{end}}<th>Total</th><th>Share</th></tr>
{{- range .Rows}}
<tr><td>{{.Key}}</td>{{range .Cells}}<td align="right">{{.}}</td>{{end}}<td align="right">{{.Total}}</td><td align="right">{{.Percent}}%</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Focus}}
<h3>Fix while fresh: incidents from the last {{.FocusDays}} days</h3>
<table border="1" cellpadding="4" cellspacing="0" style="border-collapse: collapse;">
<tr><th align="left">Reference</th><th align="left">Unit</th><th>Age (days)</th><th align="left">Missing fields</th></tr>
{{- range .Focus}}
<tr><td>{{.Reference}}</td><td>{{.Unit}}</td><td align="right">{{.AgeDays}}</td><td>{{.Missing}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .ReportURL}}
<p><a href="{{.ReportURL}}">Full report</a></p>
{{- end}}
</body>
</html>
`))
