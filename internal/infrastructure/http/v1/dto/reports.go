// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"
	"time"

	"bizreports/internal/domain/reports"
)

// Report builder actions.
const (
	ActionNone           = ""
	ActionExport         = "export"
	ActionSchedule       = "schedule"
	ActionCancelSchedule = "cancel_schedule"
)

// ReportQuery is the query string of the report builder endpoint.
type ReportQuery struct {
	ReportType string `form:"report_type"`
	StartDate  string `form:"start_date"`
	EndDate    string `form:"end_date"`
	DateField  string `form:"date_field"`

	InvoiceStatus  string `form:"invoice_status"`
	GroupDatesBy   string `form:"group_dates_by"`
	DocumentFilter string `form:"document_filter"`
	CurrencyType   string `form:"currency_type"`

	Action            string `form:"action"`
	Format            string `form:"format"`
	Frequency         string `form:"frequency"`
	ScheduledReportID string `form:"scheduled_report_id"`
}

// NormalizedAction returns the lowercased action.
func (q ReportQuery) NormalizedAction() string {
	return strings.ToLower(strings.TrimSpace(q.Action))
}

// HasReportType reports whether the caller picked a report; without one the builder shows defaults.
func (q ReportQuery) HasReportType() bool {
	return strings.TrimSpace(q.ReportType) != ""
}

// ToRequest builds the domain request. Without a report type it falls back to the invoice
// report by invoice date over the three months up to today.
func (q ReportQuery) ToRequest(today time.Time) (reports.Request, error) {
	options := reports.ParseOptions(map[string]string{
		reports.OptDateField:      q.DateField,
		reports.OptInvoiceStatus:  q.InvoiceStatus,
		reports.OptGroupDatesBy:   q.GroupDatesBy,
		reports.OptDocumentFilter: q.DocumentFilter,
		reports.OptCurrencyType:   q.CurrencyType,
		reports.OptExportFormat:   q.Format,
	})

	req := reports.Request{
		Options:      options,
		IsExport:     q.NormalizedAction() == ActionExport,
		ExportFormat: reports.Format(options.ExportFormat),
	}

	if !q.HasReportType() {
		end := reports.CalendarDay(today)
		req.ReportType = reports.TypeInvoice
		req.DateField = "invoice_date"
		req.Options.DateField = "invoice_date"
		req.StartDate = end.AddDate(0, -3, 0)
		req.EndDate = end
		return req, nil
	}

	start, err := reports.ParseDate("start_date", q.StartDate)
	if err != nil {
		return reports.Request{}, err
	}
	end, err := reports.ParseDate("end_date", q.EndDate)
	if err != nil {
		return reports.Request{}, err
	}

	req.ReportType = reports.ReportType(q.ReportType)
	req.DateField = options.DateField
	req.StartDate = start
	req.EndDate = end
	return req, nil
}

// TotalsResponse is the flattened totals table.
type TotalsResponse struct {
	Header reports.Row   `json:"header"`
	Rows   []reports.Row `json:"rows"`
}

// ScheduledReportResponse represents one recurring export of the caller.
type ScheduledReportResponse struct {
	ID         string `json:"id"`
	ReportType string `json:"reportType"`
	Frequency  string `json:"frequency"`
	Format     string `json:"format"`
	SendDate   string `json:"sendDate"`
}

// FromScheduledReports converts domain schedules to response DTOs.
func FromScheduledReports(items []reports.ScheduledReport) []ScheduledReportResponse {
	out := make([]ScheduledReportResponse, 0, len(items))
	for i := range items {
		s := &items[i]
		resp := ScheduledReportResponse{
			ID:         s.ID.String(),
			ReportType: string(s.ReportType),
			Frequency:  string(s.Frequency),
			SendDate:   s.SendDate.Format(reports.DateLayout),
		}
		if cfg, err := s.DecodeConfig(); err == nil {
			resp.Format = string(cfg.ExportFormat)
		}
		out = append(out, resp)
	}
	return out
}

// ReportResponse is the report builder payload.
type ReportResponse struct {
	StartDate        string                    `json:"startDate"`
	EndDate          string                    `json:"endDate"`
	ReportType       string                    `json:"reportType"`
	Title            string                    `json:"title"`
	ReportTypes      map[string]string         `json:"reportTypes"`
	Columns          []reports.Column          `json:"columns"`
	Rows             []reports.Row             `json:"rows"`
	Totals           *TotalsResponse           `json:"totals,omitempty"`
	Chart            []reports.ChartPoint      `json:"chart,omitempty"`
	ScheduledReports []ScheduledReportResponse `json:"scheduledReports"`

	// Report is false when the account's plan does not include reports.
	Report bool `json:"report"`
}

// NewReportResponse builds the builder payload for req. report is nil when nothing ran.
func NewReportResponse(req reports.Request, report *reports.Report, scheduled []reports.ScheduledReport) *ReportResponse {
	resp := &ReportResponse{
		StartDate:        req.StartDate.Format(reports.DateLayout),
		EndDate:          req.EndDate.Format(reports.DateLayout),
		ReportType:       string(reports.NormalizeType(string(req.ReportType))),
		Title:            reports.NormalizeType(string(req.ReportType)).Title(),
		ReportTypes:      ReportTypeLabels(),
		Columns:          []reports.Column{},
		Rows:             []reports.Row{},
		ScheduledReports: FromScheduledReports(scheduled),
		Report:           true,
	}
	if report == nil {
		return resp
	}

	if report.Columns != nil {
		resp.Columns = report.Columns
	}
	if report.Rows != nil {
		resp.Rows = report.Rows
	}
	if !report.Summary.IsEmpty() {
		resp.Totals = &TotalsResponse{Header: report.Summary.Header, Rows: report.Summary.Rows}
	}
	resp.Chart = report.Chart
	return resp
}

// NewLockedReportResponse builds the builder payload for an account without reports:
// no columns, rows or totals, but the caller's schedules are still listed.
func NewLockedReportResponse(req reports.Request, scheduled []reports.ScheduledReport) *ReportResponse {
	resp := NewReportResponse(req, nil, scheduled)
	resp.Report = false
	return resp
}

// DatavizResponse is the payload of the data visualization endpoint.
type DatavizResponse struct {
	Clients []reports.VizClient `json:"clients"`
	Message string              `json:"message,omitempty"`
}

// ReportTypeLabels maps every report type id to its label.
func ReportTypeLabels() map[string]string {
	types := reports.Types()
	out := make(map[string]string, len(types))
	for _, t := range types {
		out[string(t)] = t.Title()
	}
	return out
}

// ReportTypeResponse describes one report kind.
type ReportTypeResponse struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	ClassName string   `json:"className"`
	Options   []string `json:"options"`
}
