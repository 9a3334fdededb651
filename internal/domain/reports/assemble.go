package reports

import "bizreports/internal/core/apperror"

// BorderStyle is the cell border applied to a table.
type BorderStyle string

const (
	BorderNone BorderStyle = "none"
	BorderThin BorderStyle = "thin"
)

// HeaderStyle describes the first row of every table.
type HeaderStyle struct {
	Background string
	FontColor  string
	FontSize   int
	FontFamily string
	Bold       bool
}

// Style is the presentation metadata every backend applies.
type Style struct {
	Orientation    string
	FreezeFirstRow bool
	Borders        BorderStyle
	Header         HeaderStyle
	AutoSize       bool
}

// Table is one named sheet of output rows. Rows[0] is the header row.
type Table struct {
	Name  string
	Rows  []Row
	Style Style
}

// Header returns the first row or nil when the table is empty.
func (t Table) Header() Row {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// FormatPolicy decides how the summary is placed and which borders apply for a format.
type FormatPolicy struct {
	// InlineSummary appends the summary below the data after a blank row.
	InlineSummary bool
	Borders       BorderStyle
}

var formatPolicies = map[Format]FormatPolicy{
	FormatCSV:  {InlineSummary: true, Borders: BorderNone},
	FormatPDF:  {InlineSummary: false, Borders: BorderThin},
	FormatXLSX: {InlineSummary: false, Borders: BorderNone},
	FormatZIP:  {InlineSummary: false, Borders: BorderNone},
}

// PolicyFor returns the placement policy of format.
func PolicyFor(format Format) (FormatPolicy, error) {
	p, ok := formatPolicies[format]
	if !ok {
		return FormatPolicy{}, apperror.NewUnsupportedFormat(string(format), formatNames())
	}
	return p, nil
}

// DefaultStyle is the shared table styling with the given borders.
func DefaultStyle(borders BorderStyle) Style {
	return Style{
		Orientation:    "landscape",
		FreezeFirstRow: true,
		Borders:        borders,
		Header: HeaderStyle{
			Background: "#777777",
			FontColor:  "#FFFFFF",
			FontSize:   13,
			FontFamily: "Calibri",
			Bold:       true,
		},
		AutoSize: true,
	}
}

// Assemble turns columns, rows and summary into the tables to export.
// CSV gets a single table with the summary inline after a blank row; other formats get the
// data table plus a separate "Totals" table when the summary is not empty.
func Assemble(reportType ReportType, columns []Column, rows []Row, summary Summary, format Format) ([]Table, error) {
	policy, err := PolicyFor(format)
	if err != nil {
		return nil, err
	}
	style := DefaultStyle(policy.Borders)

	data := Table{
		Name:  DataSheetName(reportType),
		Rows:  make([]Row, 0, len(rows)+len(summary.Rows)+3),
		Style: style,
	}
	data.Rows = append(data.Rows, HeaderRow(columns))
	data.Rows = append(data.Rows, rows...)

	if summary.IsEmpty() {
		return []Table{data}, nil
	}

	if policy.InlineSummary {
		data.Rows = append(data.Rows, Row{})
		data.Rows = append(data.Rows, summary.Header)
		data.Rows = append(data.Rows, summary.Rows...)
		return []Table{data}, nil
	}

	totals := Table{
		Name:  TotalsSheetName,
		Rows:  make([]Row, 0, len(summary.Rows)+1),
		Style: style,
	}
	totals.Rows = append(totals.Rows, summary.Header)
	totals.Rows = append(totals.Rows, summary.Rows...)

	return []Table{data, totals}, nil
}
