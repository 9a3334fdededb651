// Package reports provides report generation: resolving a report kind, running it over a
// date range, flattening totals by currency and dimension, and assembling tables for export.
package reports

import (
	"slices"
	"strings"
	"time"

	"bizreports/internal/core/apperror"
)

// ReportType identifies one report kind.
type ReportType string

const (
	TypeActivity      ReportType = "activity"
	TypeAging         ReportType = "aging"
	TypeClient        ReportType = "client"
	TypeDocument      ReportType = "document"
	TypeExpense       ReportType = "expense"
	TypeInvoice       ReportType = "invoice"
	TypePayment       ReportType = "payment"
	TypeProduct       ReportType = "product"
	TypeProfitAndLoss ReportType = "profit_and_loss"
	TypeTask          ReportType = "task"
	TypeTaxRate       ReportType = "tax_rate"
	TypeQuote         ReportType = "quote"
)

// Format is an export target.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatZIP  Format = "zip"
)

// Formats lists the supported export formats.
func Formats() []Format {
	return []Format{FormatCSV, FormatPDF, FormatXLSX, FormatZIP}
}

func formatNames() []string {
	names := make([]string, 0, 4)
	for _, f := range Formats() {
		names = append(names, string(f))
	}
	return names
}

// ParseFormat normalizes raw (case-insensitive) and rejects anything outside Formats().
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(Formats(), f) {
		return "", apperror.NewUnsupportedFormat(raw, formatNames())
	}
	return f, nil
}

// DateLayout is the wire format for report dates.
const DateLayout = "2006-01-02"

// CalendarDay returns the calendar date of t, read in t's location, as midnight UTC.
// Parsed dates and DATE columns use the same form, so days compare directly.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date. field names the offending input in the error.
func ParseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperror.NewValidation("malformed date").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return t, nil
}

// Request is one report invocation. It is built per call and discarded afterwards.
type Request struct {
	ReportType ReportType
	StartDate  time.Time
	EndDate    time.Time
	DateField  string
	Options    Options

	IsExport     bool
	ExportFormat Format
}

// Validate checks the range and, for exports, the format.
func (r Request) Validate() error {
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return apperror.NewValidation("start_date and end_date are required")
	}
	if r.StartDate.After(r.EndDate) {
		return apperror.NewValidation("start_date must not be after end_date").
			WithDetail("start_date", r.StartDate.Format(DateLayout)).
			WithDetail("end_date", r.EndDate.Format(DateLayout))
	}
	if r.IsExport {
		if _, err := ParseFormat(string(r.ExportFormat)); err != nil {
			return err
		}
	}
	return nil
}

// Column is one output column. Order in a slice defines output order.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Row is a sequence of display cells aligned to the column order.
type Row []string

// Result is what a runner produces.
type Result struct {
	Columns []Column
	Rows    []Row
	Totals  *Totals
	Chart   []ChartPoint
}

// ChartPoint is one period bucket of the on-screen chart, per currency.
type ChartPoint struct {
	Period     string `json:"period"`
	CurrencyID int64  `json:"currencyId"`
	Amount     string `json:"amount"`
}

// HeaderRow returns the labeled header derived from columns.
func HeaderRow(columns []Column) Row {
	row := make(Row, len(columns))
	for i, c := range columns {
		row[i] = c.Label
	}
	return row
}
