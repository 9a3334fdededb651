package reports

import (
	"context"
	"fmt"
	"time"

	"bizreports/internal/core/types"
)

// Dataviz rows carry only the fields the visualization may show. Notes, tax ids and
// contact emails are never selected.

// VizContact is a client contact without its email.
type VizContact struct {
	ClientID  int64  `db:"client_id" json:"-"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	IsPrimary bool   `db:"is_primary" json:"isPrimary"`
}

// VizInvoiceItem is one line of an invoice.
type VizInvoiceItem struct {
	InvoiceID  int64       `db:"invoice_id" json:"-"`
	ProductKey string      `db:"product_key" json:"productKey"`
	Qty        types.Money `db:"qty" json:"qty"`
	Cost       types.Money `db:"cost" json:"cost"`
}

// VizInvoice is an invoice with its items.
type VizInvoice struct {
	ID            int64       `db:"id" json:"id"`
	ClientID      int64       `db:"client_id" json:"-"`
	InvoiceNumber string      `db:"invoice_number" json:"invoiceNumber"`
	InvoiceDate   time.Time   `db:"invoice_date" json:"invoiceDate"`
	DueDate       *time.Time  `db:"due_date" json:"dueDate,omitempty"`
	Status        string      `db:"status" json:"status"`
	Amount        types.Money `db:"amount" json:"amount"`
	Balance       types.Money `db:"balance" json:"balance"`

	Items []VizInvoiceItem `db:"-" json:"invoiceItems"`
}

// VizClient is a client with its invoices and contacts.
type VizClient struct {
	ID         int64       `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	CurrencyID int64       `db:"currency_id" json:"currencyId"`
	Balance    types.Money `db:"balance" json:"balance"`
	PaidToDate types.Money `db:"paid_to_date" json:"paidToDate"`

	Invoices []VizInvoice `db:"-" json:"invoices"`
	Contacts []VizContact `db:"-" json:"contacts"`
}

// VizData is the flat dataset a Source returns for the visualization.
type VizData struct {
	Clients  []VizClient
	Invoices []VizInvoice
	Items    []VizInvoiceItem
	Contacts []VizContact
}

// Nest attaches items to invoices and invoices and contacts to clients, keeping source order.
// Children of unknown parents are dropped.
func (d *VizData) Nest() []VizClient {
	invoiceAt := make(map[int64]int, len(d.Invoices))
	invoices := make([]VizInvoice, len(d.Invoices))
	for i, inv := range d.Invoices {
		inv.Items = []VizInvoiceItem{}
		invoices[i] = inv
		invoiceAt[inv.ID] = i
	}
	for _, item := range d.Items {
		if i, ok := invoiceAt[item.InvoiceID]; ok {
			invoices[i].Items = append(invoices[i].Items, item)
		}
	}

	clientAt := make(map[int64]int, len(d.Clients))
	clients := make([]VizClient, len(d.Clients))
	for i, c := range d.Clients {
		c.Invoices = []VizInvoice{}
		c.Contacts = []VizContact{}
		clients[i] = c
		clientAt[c.ID] = i
	}
	for _, inv := range invoices {
		if i, ok := clientAt[inv.ClientID]; ok {
			clients[i].Invoices = append(clients[i].Invoices, inv)
		}
	}
	for _, contact := range d.Contacts {
		if i, ok := clientAt[contact.ClientID]; ok {
			clients[i].Contacts = append(clients[i].Contacts, contact)
		}
	}
	return clients
}

// Dataviz returns the current account's clients with their invoices, invoice items and
// contacts for the visualization.
func (s *Service) Dataviz(ctx context.Context) ([]VizClient, error) {
	ctx, span := tracer.Start(ctx, "reports.Dataviz")
	defer span.End()

	var data *VizData
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		data, err = s.deps.Source.VizData(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load dataviz: %w", err)
	}

	clients := data.Nest()
	s.log.WithContext(ctx).Debugw("dataviz loaded",
		"clients", len(clients),
		"invoices", len(data.Invoices),
	)
	return clients, nil
}
