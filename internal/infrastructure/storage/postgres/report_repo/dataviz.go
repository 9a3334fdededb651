package report_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"bizreports/internal/domain/reports"
	"bizreports/internal/infrastructure/storage/postgres"
)

func (r *ReportRepo) vizClientsQuery(account string) squirrel.SelectBuilder {
	return r.builder.Select(
		"c.id",
		"c.name",
		"c.currency_id",
		"COALESCE(SUM(i.balance), 0) AS balance",
		"COALESCE(SUM(i.amount - i.balance), 0) AS paid_to_date",
	).
		From("clients c").
		LeftJoin("invoices i ON i.client_id = c.id AND i.deleted_at IS NULL AND NOT i.is_quote").
		Where(squirrel.Eq{"c.account_id": account}).
		Where("c.deleted_at IS NULL").
		GroupBy("c.id").
		OrderBy("c.name", "c.id")
}

func (r *ReportRepo) vizInvoicesQuery(account string) squirrel.SelectBuilder {
	return r.builder.Select(
		"i.id",
		"i.client_id",
		"i.invoice_number",
		"i.invoice_date",
		"i.due_date",
		"i.status",
		"i.amount",
		"i.balance",
	).
		From("invoices i").
		Join("clients c ON c.id = i.client_id").
		Where(squirrel.Eq{"i.account_id": account}).
		Where("i.deleted_at IS NULL").
		Where("c.deleted_at IS NULL").
		Where("NOT i.is_quote").
		OrderBy("i.invoice_date", "i.id")
}

func (r *ReportRepo) vizItemsQuery(account string) squirrel.SelectBuilder {
	return r.builder.Select(
		"ii.invoice_id",
		"ii.product_key",
		"ii.qty",
		"ii.cost",
	).
		From("invoice_items ii").
		Join("invoices i ON i.id = ii.invoice_id").
		Where(squirrel.Eq{"i.account_id": account}).
		Where("ii.deleted_at IS NULL").
		Where("i.deleted_at IS NULL").
		Where("NOT i.is_quote").
		OrderBy("ii.invoice_id", "ii.id")
}

func (r *ReportRepo) vizContactsQuery(account string) squirrel.SelectBuilder {
	return r.builder.Select(
		"ct.client_id",
		"COALESCE(ct.first_name, '') AS first_name",
		"COALESCE(ct.last_name, '') AS last_name",
		"ct.is_primary",
	).
		From("contacts ct").
		Join("clients c ON c.id = ct.client_id").
		Where(squirrel.Eq{"c.account_id": account}).
		Where("c.deleted_at IS NULL").
		OrderBy("ct.client_id", "ct.is_primary DESC", "ct.id")
}

// VizData returns the live clients of the current account with their invoices, items and
// contacts. Notes, tax ids and emails are not selected.
func (r *ReportRepo) VizData(ctx context.Context) (*reports.VizData, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	var data reports.VizData
	if data.Clients, err = selectAll[reports.VizClient](ctx, r, "dataviz clients", r.vizClientsQuery(account)); err != nil {
		return nil, err
	}
	if data.Invoices, err = selectAll[reports.VizInvoice](ctx, r, "dataviz invoices", r.vizInvoicesQuery(account)); err != nil {
		return nil, err
	}
	if data.Items, err = selectAll[reports.VizInvoiceItem](ctx, r, "dataviz invoice items", r.vizItemsQuery(account)); err != nil {
		return nil, err
	}
	if data.Contacts, err = selectAll[reports.VizContact](ctx, r, "dataviz contacts", r.vizContactsQuery(account)); err != nil {
		return nil, err
	}
	return &data, nil
}
