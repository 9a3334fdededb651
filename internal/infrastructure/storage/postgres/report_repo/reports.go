// Package report_repo provides the PostgreSQL read side of the report pipeline and the
// scheduled report store. Every query is filtered by the account id carried in the context.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bizreports/internal/domain/reports"
	"bizreports/internal/infrastructure/storage/postgres"
)

var _ reports.Source = (*ReportRepo)(nil)

// Date fields a caller may filter on, per entity. Values are trusted SQL; keys come from requests.
var (
	invoiceDateColumns  = map[string]string{"invoice_date": "i.invoice_date", "due_date": "i.due_date"}
	paymentDateColumns  = map[string]string{"payment_date": "p.payment_date"}
	expenseDateColumns  = map[string]string{"expense_date": "e.expense_date"}
	taskDateColumns     = map[string]string{"task_date": "t.started_at"}
	activityDateColumns = map[string]string{"created_at": "act.created_at"}
	documentDateColumns = map[string]string{"created_at": "d.created_at"}
)

// ReportRepo implements reports.Source.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// dateColumn maps a requested date field onto its column, falling back to the first-listed default.
func dateColumn(columns map[string]string, field, fallback string) string {
	if col, ok := columns[field]; ok {
		return col
	}
	return columns[fallback]
}

// inRange limits col to the calendar days [Start, End].
func inRange(q squirrel.SelectBuilder, col string, rq reports.RangeQuery) squirrel.SelectBuilder {
	return q.Where(squirrel.GtOrEq{col: rq.Start}).
		Where(squirrel.Lt{col: rq.End.AddDate(0, 0, 1)})
}

func selectAll[T any](ctx context.Context, r *ReportRepo, what string, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", what, err)
	}

	var out []T
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, postgres.QueryError("select "+what, err)
	}
	return out, nil
}

// AccountCurrencyID returns the default currency of the current account.
func (r *ReportRepo) AccountCurrencyID(ctx context.Context) (int64, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return 0, err
	}

	sql, args, err := r.builder.Select("currency_id").
		From("accounts").
		Where(squirrel.Eq{"id": account}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build account currency query: %w", err)
	}

	var currencyID int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&currencyID); err != nil {
		return 0, postgres.QueryError("select account currency", err)
	}
	return currencyID, nil
}

func (r *ReportRepo) invoicesQuery(account string, q reports.InvoiceQuery) squirrel.SelectBuilder {
	sel := r.builder.Select(
		"i.id",
		"c.name AS client_name",
		"i.invoice_number",
		"i.invoice_date",
		"i.due_date",
		"i.status",
		"i.amount",
		"i.balance",
		"i.amount - i.balance AS paid_to_date",
		"(SELECT MAX(p.payment_date) FROM payments p WHERE p.invoice_id = i.id AND p.deleted_at IS NULL) AS last_payment_date",
		"COALESCE((SELECT pt.name FROM payments p JOIN payment_types pt ON pt.id = p.payment_type_id"+
			" WHERE p.invoice_id = i.id AND p.deleted_at IS NULL ORDER BY p.payment_date DESC LIMIT 1), '') AS payment_method",
		"c.currency_id",
		"i.exchange_rate",
		"COALESCE(i.public_notes, '') AS public_notes",
		"COALESCE(i.private_notes, '') AS private_notes",
	).
		From("invoices i").
		Join("clients c ON c.id = i.client_id").
		Where(squirrel.Eq{"i.account_id": account}).
		Where("i.deleted_at IS NULL").
		Where("c.deleted_at IS NULL").
		Where(squirrel.Eq{"i.is_quote": q.Quotes})

	if q.OpenOnly {
		sel = sel.Where(squirrel.Gt{"i.balance": 0}).Where(squirrel.NotEq{"i.status": reports.StatusDraft})
	}

	sel = inRange(sel, dateColumn(invoiceDateColumns, q.DateField, "invoice_date"), q.RangeQuery)
	return sel.OrderBy("i.invoice_date", "i.id")
}

// Invoices returns invoices or quotes of the current account inside the range.
func (r *ReportRepo) Invoices(ctx context.Context, q reports.InvoiceQuery) ([]reports.InvoiceRecord, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return selectAll[reports.InvoiceRecord](ctx, r, "invoices", r.invoicesQuery(account, q))
}

func (r *ReportRepo) invoiceItemsQuery(account string, q reports.InvoiceQuery) squirrel.SelectBuilder {
	sel := r.builder.Select(
		"c.name AS client_name",
		"i.invoice_number",
		"i.invoice_date",
		"i.due_date",
		"i.status",
		"i.balance",
		"ii.product_key",
		"COALESCE(ii.notes, '') AS notes",
		"ii.qty",
		"ii.cost",
		"c.currency_id",
		"i.exchange_rate",
	).
		From("invoice_items ii").
		Join("invoices i ON i.id = ii.invoice_id").
		Join("clients c ON c.id = i.client_id").
		Where(squirrel.Eq{"i.account_id": account}).
		Where("i.deleted_at IS NULL").
		Where("ii.deleted_at IS NULL").
		Where(squirrel.Eq{"i.is_quote": q.Quotes})

	sel = inRange(sel, dateColumn(invoiceDateColumns, q.DateField, "invoice_date"), q.RangeQuery)
	return sel.OrderBy("ii.product_key", "i.invoice_date")
}

// InvoiceItems returns the lines of invoices inside the range.
func (r *ReportRepo) InvoiceItems(ctx context.Context, q reports.InvoiceQuery) ([]reports.InvoiceItemRecord, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return selectAll[reports.InvoiceItemRecord](ctx, r, "invoice items", r.invoiceItemsQuery(account, q))
}

func (r *ReportRepo) taxLinesQuery(account string, q reports.InvoiceQuery) squirrel.SelectBuilder {
	sel := r.builder.Select(
		"i.status",
		"i.due_date",
		"i.balance",
		"tx.name AS tax_name",
		"tx.rate AS tax_rate",
		"tx.amount AS tax_amount",
		"CASE WHEN i.amount = 0 THEN 0 ELSE tx.amount * (i.amount - i.balance) / i.amount END AS tax_paid",
		"c.currency_id",
		"i.exchange_rate",
	).
		From("invoice_taxes tx").
		Join("invoices i ON i.id = tx.invoice_id").
		Join("clients c ON c.id = i.client_id").
		Where(squirrel.Eq{"i.account_id": account}).
		Where("i.deleted_at IS NULL").
		Where(squirrel.Eq{"i.is_quote": false})

	sel = inRange(sel, dateColumn(invoiceDateColumns, q.DateField, "invoice_date"), q.RangeQuery)
	return sel.OrderBy("tx.name", "tx.rate")
}

// TaxLines returns the tax charged on invoices inside the range, one row per invoice and rate.
func (r *ReportRepo) TaxLines(ctx context.Context, q reports.InvoiceQuery) ([]reports.TaxLineRecord, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return selectAll[reports.TaxLineRecord](ctx, r, "tax lines", r.taxLinesQuery(account, q))
}

func (r *ReportRepo) paymentsQuery(account string, q reports.RangeQuery) squirrel.SelectBuilder {
	sel := r.builder.Select(
		"c.name AS client_name",
		"i.invoice_number",
		"i.invoice_date",
		"i.amount AS invoice_amount",
		"p.payment_date",
		"p.amount",
		"p.refunded",
		"COALESCE(pt.name, '') AS method",
		"c.currency_id",
		"p.exchange_rate",
		"COALESCE(p.private_notes, '') AS private_notes",
	).
		From("payments p").
		Join("invoices i ON i.id = p.invoice_id").
		Join("clients c ON c.id = i.client_id").
		LeftJoin("payment_types pt ON pt.id = p.payment_type_id").
		Where(squirrel.Eq{"p.account_id": account}).
		Where("p.deleted_at IS NULL").
		Where("i.deleted_at IS NULL")

	sel = inRange(sel, dateColumn(paymentDateColumns, q.DateField, "payment_date"), q)
	return sel.OrderBy("p.payment_date", "p.id")
}

// Payments returns payments received inside the range.
func (r *ReportRepo) Payments(ctx context.Context, q reports.RangeQuery) ([]reports.PaymentRecord, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return selectAll[reports.PaymentRecord](ctx, r, "payments", r.paymentsQuery(account, q))
}

func (r *ReportRepo) clientsQuery(account string, q reports.RangeQuery) squirrel.SelectBuilder {
	col := dateColumn(invoiceDateColumns, q.DateField, "invoice_date")
	return r.builder.Select(
		"c.name",
		"COALESCE(c.id_number, '') AS id_number",
		"COALESCE((SELECT ct.email FROM contacts ct WHERE ct.client_id = c.id ORDER BY ct.is_primary DESC, ct.id LIMIT 1), '') AS contact_email",
		"COALESCE(SUM(i.amount), 0) AS amount",
		"COALESCE(SUM(i.amount - i.balance), 0) AS paid",
		"COALESCE(SUM(i.balance), 0) AS balance",
		"c.currency_id",
		"COALESCE(c.public_notes, '') AS public_notes",
		"COALESCE(c.private_notes, '') AS private_notes",
		"COALESCE(u.name, '') AS user_name",
	).
		From("clients c").
		LeftJoin("invoices i ON i.client_id = c.id AND i.is_quote = false AND i.deleted_at IS NULL"+
			" AND "+col+" >= ? AND "+col+" < ?", q.Start, q.End.AddDate(0, 0, 1)).
		LeftJoin("users u ON u.id = c.user_id").
		Where(squirrel.Eq{"c.account_id": account}).
		Where("c.deleted_at IS NULL").
		GroupBy("c.id", "u.name").
		OrderBy("c.name")
}

// Clients returns every active client with its invoice sums over the range.
func (r *ReportRepo) Clients(ctx context.Context, q reports.RangeQuery) ([]reports.ClientRecord, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return selectAll[reports.ClientRecord](ctx, r, "clients", r.clientsQuery(account, q))
}

func (r *ReportRepo) expensesQuery(account string, q reports.RangeQuery) squirrel.SelectBuilder {
	sel := r.builder.Select(
		"COALESCE(v.name, '') AS vendor_name",
		"COALESCE(c.name, '') AS client_name",
		"e.expense_date",
		"COALESCE(ec.name, '') AS category",
		"e.amount",
		"e.currency_id",
		"e.exchange_rate",
		"COALESCE(e.public_notes, '') AS public_notes",
		"COALESCE(e.private_notes, '') AS private_notes",
	).
		From("expenses e").
		LeftJoin("vendors v ON v.id = e.vendor_id").
		LeftJoin("clients c ON c.id = e.client_id").
		LeftJoin("expense_categories ec ON ec.id = e.category_id").
		Where(squirrel.Eq{"e.account_id": account}).
		Where("e.deleted_at IS NULL")

	sel = inRange(sel, dateColumn(expenseDateColumns, q.DateField, "expense_date"), q)
	return sel.OrderBy("e.expense_date", "e.id")
}

// Expenses returns expenses inside the range.
func (r *ReportRepo) Expenses(ctx context.Context, q reports.RangeQuery) ([]reports.ExpenseRecord, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return selectAll[reports.ExpenseRecord](ctx, r, "expenses", r.expensesQuery(account, q))
}

func (r *ReportRepo) tasksQuery(account string, q reports.RangeQuery) squirrel.SelectBuilder {
	sel := r.builder.Select(
		"COALESCE(c.name, '') AS client_name",
		"COALESCE(pr.name, '') AS project_name",
		"COALESCE(t.description, '') AS description",
		"t.started_at",
		"t.duration_seconds",
		"COALESCE(NULLIF(pr.task_rate, 0), NULLIF(c.task_rate, 0), a.task_rate, 0) AS rate",
		"COALESCE(c.currency_id, a.currency_id) AS currency_id",
	).
		From("tasks t").
		Join("accounts a ON a.id = t.account_id").
		LeftJoin("clients c ON c.id = t.client_id").
		LeftJoin("projects pr ON pr.id = t.project_id").
		Where(squirrel.Eq{"t.account_id": account}).
		Where("t.deleted_at IS NULL")

	sel = inRange(sel, dateColumn(taskDateColumns, q.DateField, "task_date"), q)
	return sel.OrderBy("t.started_at", "t.id")
}

// Tasks returns time-tracked tasks started inside the range.
func (r *ReportRepo) Tasks(ctx context.Context, q reports.RangeQuery) ([]reports.TaskRecord, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return selectAll[reports.TaskRecord](ctx, r, "tasks", r.tasksQuery(account, q))
}

func (r *ReportRepo) activitiesQuery(account string, q reports.RangeQuery) squirrel.SelectBuilder {
	sel := r.builder.Select(
		"act.created_at",
		"COALESCE(c.name, '') AS client_name",
		"COALESCE(u.name, '') AS user_name",
		"act.description",
	).
		From("activities act").
		LeftJoin("clients c ON c.id = act.client_id").
		LeftJoin("users u ON u.id = act.user_id").
		Where(squirrel.Eq{"act.account_id": account})

	sel = inRange(sel, dateColumn(activityDateColumns, q.DateField, "created_at"), q)
	return sel.OrderBy("act.created_at DESC", "act.id DESC")
}

// Activities returns the account's activity log inside the range, newest first.
func (r *ReportRepo) Activities(ctx context.Context, q reports.RangeQuery) ([]reports.ActivityRecord, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return selectAll[reports.ActivityRecord](ctx, r, "activities", r.activitiesQuery(account, q))
}

const documentRecordType = "CASE WHEN d.expense_id IS NOT NULL THEN 'expense'" +
	" WHEN i.is_quote THEN 'quote' ELSE 'invoice' END"

func (r *ReportRepo) documentsQuery(account string, q reports.AttachmentQuery) squirrel.SelectBuilder {
	sel := r.builder.Select(
		"d.name",
		"d.type",
		"d.size",
		documentRecordType+" AS record_type",
		"COALESCE(i.invoice_number, e.reference, '') AS record_ref",
		"d.created_at",
	).
		From("documents d").
		LeftJoin("invoices i ON i.id = d.invoice_id").
		LeftJoin("expenses e ON e.id = d.expense_id").
		Where(squirrel.Eq{"d.account_id": account}).
		Where("d.deleted_at IS NULL")

	switch q.RecordType {
	case "expense":
		sel = sel.Where("d.expense_id IS NOT NULL")
	case "invoice":
		sel = sel.Where("d.invoice_id IS NOT NULL").Where(squirrel.Eq{"i.is_quote": false})
	case "quote":
		sel = sel.Where("d.invoice_id IS NOT NULL").Where(squirrel.Eq{"i.is_quote": true})
	}

	sel = inRange(sel, dateColumn(documentDateColumns, q.DateField, "created_at"), q.RangeQuery)
	return sel.OrderBy("d.created_at", "d.id")
}

// Documents returns files attached to invoices, quotes and expenses inside the range.
func (r *ReportRepo) Documents(ctx context.Context, q reports.AttachmentQuery) ([]reports.DocumentRecord, error) {
	account, err := postgres.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return selectAll[reports.DocumentRecord](ctx, r, "documents", r.documentsQuery(account, q))
}
