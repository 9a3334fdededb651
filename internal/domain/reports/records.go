package reports

import (
	"time"

	"bizreports/internal/core/types"
)

// InvoiceState is the part of an invoice that status filters look at.
type InvoiceState struct {
	Status  string      `db:"status"`
	DueDate *time.Time  `db:"due_date"`
	Balance types.Money `db:"balance"`
}

// StatusLabel returns the display status, reporting overdue invoices as such.
func (s InvoiceState) StatusLabel(today time.Time) string {
	if s.overdue(today) {
		return Label(StatusOverdue)
	}
	return Label(s.Status)
}

func (s InvoiceState) overdue(today time.Time) bool {
	return s.Status != StatusDraft && s.Balance.IsPositive() && s.DueDate != nil && s.DueDate.Before(today)
}

// Matches reports whether the invoice passes the invoice_status filter.
func (s InvoiceState) Matches(filter string, today time.Time) bool {
	switch filter {
	case "", StatusAll:
		return true
	case StatusUnpaid:
		return s.Status != StatusDraft && s.Balance.IsPositive()
	case StatusOverdue:
		return s.overdue(today)
	default:
		return s.Status == filter
	}
}

// InvoiceRecord is an invoice or quote row read for reporting.
type InvoiceRecord struct {
	InvoiceState

	ID              int64       `db:"id"`
	ClientName      string      `db:"client_name"`
	InvoiceNumber   string      `db:"invoice_number"`
	InvoiceDate     time.Time   `db:"invoice_date"`
	Amount          types.Money `db:"amount"`
	PaidToDate      types.Money `db:"paid_to_date"`
	LastPaymentDate *time.Time  `db:"last_payment_date"`
	PaymentMethod   string      `db:"payment_method"`
	CurrencyID      int64       `db:"currency_id"`
	ExchangeRate    types.Money `db:"exchange_rate"`
	PublicNotes     string      `db:"public_notes"`
	PrivateNotes    string      `db:"private_notes"`
}

// InvoiceItemRecord is one invoice line.
type InvoiceItemRecord struct {
	InvoiceState

	ClientName    string      `db:"client_name"`
	InvoiceNumber string      `db:"invoice_number"`
	InvoiceDate   time.Time   `db:"invoice_date"`
	ProductKey    string      `db:"product_key"`
	Notes         string      `db:"notes"`
	Qty           types.Money `db:"qty"`
	Cost          types.Money `db:"cost"`
	CurrencyID    int64       `db:"currency_id"`
	ExchangeRate  types.Money `db:"exchange_rate"`
}

// TaxLineRecord is the tax charged on one invoice under one tax rate.
type TaxLineRecord struct {
	InvoiceState

	TaxName      string      `db:"tax_name"`
	TaxRate      types.Money `db:"tax_rate"`
	Amount       types.Money `db:"tax_amount"`
	Paid         types.Money `db:"tax_paid"`
	CurrencyID   int64       `db:"currency_id"`
	ExchangeRate types.Money `db:"exchange_rate"`
}

// PaymentRecord is a payment applied to an invoice.
type PaymentRecord struct {
	ClientName    string      `db:"client_name"`
	InvoiceNumber string      `db:"invoice_number"`
	InvoiceDate   time.Time   `db:"invoice_date"`
	InvoiceAmount types.Money `db:"invoice_amount"`
	PaymentDate   time.Time   `db:"payment_date"`
	Amount        types.Money `db:"amount"`
	Refunded      types.Money `db:"refunded"`
	Method        string      `db:"method"`
	CurrencyID    int64       `db:"currency_id"`
	ExchangeRate  types.Money `db:"exchange_rate"`
	PrivateNotes  string      `db:"private_notes"`
}

// ClientRecord carries a client with its invoice sums over the range.
type ClientRecord struct {
	Name         string      `db:"name"`
	IDNumber     string      `db:"id_number"`
	ContactEmail string      `db:"contact_email"`
	Amount       types.Money `db:"amount"`
	Paid         types.Money `db:"paid"`
	Balance      types.Money `db:"balance"`
	CurrencyID   int64       `db:"currency_id"`
	PublicNotes  string      `db:"public_notes"`
	PrivateNotes string      `db:"private_notes"`
	UserName     string      `db:"user_name"`
}

// ExpenseRecord is one expense.
type ExpenseRecord struct {
	VendorName   string      `db:"vendor_name"`
	ClientName   string      `db:"client_name"`
	ExpenseDate  time.Time   `db:"expense_date"`
	Category     string      `db:"category"`
	Amount       types.Money `db:"amount"`
	CurrencyID   int64       `db:"currency_id"`
	ExchangeRate types.Money `db:"exchange_rate"`
	PublicNotes  string      `db:"public_notes"`
	PrivateNotes string      `db:"private_notes"`
}

// TaskRecord is one time-tracked task.
type TaskRecord struct {
	ClientName  string      `db:"client_name"`
	ProjectName string      `db:"project_name"`
	Description string      `db:"description"`
	StartedAt   time.Time   `db:"started_at"`
	Seconds     int64       `db:"duration_seconds"`
	Rate        types.Money `db:"rate"`
	CurrencyID  int64       `db:"currency_id"`
}

// ActivityRecord is one audit entry of the account.
type ActivityRecord struct {
	CreatedAt   time.Time `db:"created_at"`
	ClientName  string    `db:"client_name"`
	UserName    string    `db:"user_name"`
	Description string    `db:"description"`
}

// DocumentRecord is one uploaded file attached to an invoice, quote or expense.
type DocumentRecord struct {
	Name       string    `db:"name"`
	Type       string    `db:"type"`
	Size       int64     `db:"size"`
	RecordType string    `db:"record_type"`
	RecordRef  string    `db:"record_ref"`
	CreatedAt  time.Time `db:"created_at"`
}
