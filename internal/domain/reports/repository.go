package reports

import (
	"context"
	"time"
)

// RangeQuery selects records whose DateField falls inside [Start, End].
type RangeQuery struct {
	Start     time.Time
	End       time.Time
	DateField string
}

// InvoiceQuery narrows a range query over invoices.
type InvoiceQuery struct {
	RangeQuery

	Quotes   bool
	OpenOnly bool
}

// AttachmentQuery narrows a range query over documents.
type AttachmentQuery struct {
	RangeQuery

	// RecordType limits documents to one owning record type; empty means all.
	RecordType string
}

// Source is the read-only data port every report kind runs against.
// Implementations scope every query to the account of the current user.
type Source interface {
	AccountCurrencyID(ctx context.Context) (int64, error)

	Invoices(ctx context.Context, q InvoiceQuery) ([]InvoiceRecord, error)
	InvoiceItems(ctx context.Context, q InvoiceQuery) ([]InvoiceItemRecord, error)
	TaxLines(ctx context.Context, q InvoiceQuery) ([]TaxLineRecord, error)
	Payments(ctx context.Context, q RangeQuery) ([]PaymentRecord, error)
	Clients(ctx context.Context, q RangeQuery) ([]ClientRecord, error)
	Expenses(ctx context.Context, q RangeQuery) ([]ExpenseRecord, error)
	Tasks(ctx context.Context, q RangeQuery) ([]TaskRecord, error)
	Activities(ctx context.Context, q RangeQuery) ([]ActivityRecord, error)
	Documents(ctx context.Context, q AttachmentQuery) ([]DocumentRecord, error)

	// VizData returns every live client of the account with its invoices, items and contacts.
	VizData(ctx context.Context) (*VizData, error)
}
