package reports

import (
	"strings"
)

// Option keys accepted from the shared options bag.
const (
	OptDateField      = "date_field"
	OptInvoiceStatus  = "invoice_status"
	OptGroupDatesBy   = "group_dates_by"
	OptDocumentFilter = "document_filter"
	OptCurrencyType   = "currency_type"
	OptExportFormat   = "export_format"
)

// Invoice status filter values.
const (
	StatusAll     = "all"
	StatusDraft   = "draft"
	StatusSent    = "sent"
	StatusViewed  = "viewed"
	StatusPartial = "partial"
	StatusPaid    = "paid"
	StatusUnpaid  = "unpaid"
	StatusOverdue = "overdue"
)

// Date grouping granularities.
const (
	GroupByDay   = "day"
	GroupByMonth = "month"
	GroupByYear  = "year"
)

// CurrencyConverted reports amounts in the account currency using each record's exchange rate.
const CurrencyConverted = "converted"

// Options is the typed form of the report options bag.
// Every report kind reads the subset listed by its RecognizedOptions.
type Options struct {
	DateField      string `json:"date_field,omitempty"`
	InvoiceStatus  string `json:"invoice_status,omitempty"`
	GroupDatesBy   string `json:"group_dates_by,omitempty"`
	DocumentFilter string `json:"document_filter,omitempty"`
	CurrencyType   string `json:"currency_type,omitempty"`
	ExportFormat   string `json:"export_format,omitempty"`
}

// ParseOptions keeps recognized keys and silently drops the rest.
func ParseOptions(raw map[string]string) Options {
	var o Options
	for key, value := range raw {
		value = strings.TrimSpace(value)
		switch strings.ToLower(key) {
		case OptDateField:
			o.DateField = value
		case OptInvoiceStatus:
			o.InvoiceStatus = strings.ToLower(value)
		case OptGroupDatesBy:
			o.GroupDatesBy = strings.ToLower(value)
		case OptDocumentFilter:
			o.DocumentFilter = strings.ToLower(value)
		case OptCurrencyType:
			o.CurrencyType = strings.ToLower(value)
		case OptExportFormat:
			o.ExportFormat = strings.ToLower(value)
		}
	}
	return o
}

// Map returns the non-empty options keyed by their wire names.
func (o Options) Map() map[string]string {
	m := make(map[string]string, 6)
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set(OptDateField, o.DateField)
	set(OptInvoiceStatus, o.InvoiceStatus)
	set(OptGroupDatesBy, o.GroupDatesBy)
	set(OptDocumentFilter, o.DocumentFilter)
	set(OptCurrencyType, o.CurrencyType)
	set(OptExportFormat, o.ExportFormat)
	return m
}

// Converted reports whether amounts should be converted to the account currency.
func (o Options) Converted() bool {
	return o.CurrencyType == CurrencyConverted
}

// dateGrouping returns the requested granularity, defaulting to month.
func (o Options) dateGrouping() string {
	switch o.GroupDatesBy {
	case GroupByDay, GroupByYear:
		return o.GroupDatesBy
	default:
		return GroupByMonth
	}
}
