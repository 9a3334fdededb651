package reports

import (
	"context"
	"fmt"
	"strconv"
)

// --- client ---

type clientReport struct{ deps Deps }

func newClientReport(d Deps) Runner { return &clientReport{deps: d} }

func (*clientReport) RecognizedOptions() []string {
	return []string{OptDateField, OptCurrencyType}
}

var clientColumns = []column{
	{key: "client"},
	{key: "id_number", exportOnly: true},
	{key: "email", exportOnly: true},
	{key: "amount"},
	{key: "paid"},
	{key: "balance"},
	{key: "public_notes", exportOnly: true},
	{key: "private_notes", exportOnly: true},
	{key: "user", exportOnly: true},
}

func (k *clientReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	clients, err := k.deps.Source.Clients(ctx, r.rangeQuery(invoiceDateFields, "invoice_date"))
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}

	cols := columnsFor(clientColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}

	for _, c := range clients {
		cur := c.CurrencyID
		amountText, err := r.money(ctx, cur, c.Amount)
		if err != nil {
			return nil, err
		}
		paidText, err := r.money(ctx, cur, c.Paid)
		if err != nil {
			return nil, err
		}
		balanceText, err := r.money(ctx, cur, c.Balance)
		if err != nil {
			return nil, err
		}

		res.Rows = append(res.Rows, project(cols, map[string]string{
			"client":        c.Name,
			"id_number":     c.IDNumber,
			"email":         c.ContactEmail,
			"amount":        amountText,
			"paid":          paidText,
			"balance":       balanceText,
			"public_notes":  c.PublicNotes,
			"private_notes": c.PrivateNotes,
			"user":          c.UserName,
		}))

		res.Totals.AddAll(cur, "",
			Metric{"amount", c.Amount},
			Metric{"paid", c.Paid},
			Metric{"balance", c.Balance},
		)
	}

	return res, nil
}

// --- activity ---

type activityReport struct{ deps Deps }

func newActivityReport(d Deps) Runner { return &activityReport{deps: d} }

func (*activityReport) RecognizedOptions() []string { return nil }

var activityColumns = []column{
	{key: "date"},
	{key: "client"},
	{key: "user"},
	{key: "activity"},
}

func (k *activityReport) Run(ctx context.Context, req Request) (*Result, error) {
	activities, err := k.deps.Source.Activities(ctx, RangeQuery{
		Start:     req.StartDate,
		End:       req.EndDate,
		DateField: "created_at",
	})
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}

	cols := columnsFor(activityColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}

	for _, a := range activities {
		res.Rows = append(res.Rows, project(cols, map[string]string{
			"date":     a.CreatedAt.Format("2006-01-02 15:04"),
			"client":   a.ClientName,
			"user":     a.UserName,
			"activity": a.Description,
		}))
	}

	return res, nil
}

// --- document ---

type documentReport struct{ deps Deps }

func newDocumentReport(d Deps) Runner { return &documentReport{deps: d} }

func (*documentReport) RecognizedOptions() []string { return []string{OptDocumentFilter} }

var documentColumns = []column{
	{key: "document"},
	{key: "type"},
	{key: "size"},
	{key: "record"},
	{key: "date"},
}

// documentFilters maps document_filter values onto owning record types.
var documentFilters = map[string]string{
	"invoices": "invoice",
	"quotes":   "quote",
	"expenses": "expense",
}

func (k *documentReport) Run(ctx context.Context, req Request) (*Result, error) {
	docs, err := k.deps.Source.Documents(ctx, AttachmentQuery{
		RangeQuery: RangeQuery{
			Start:     req.StartDate,
			End:       req.EndDate,
			DateField: "created_at",
		},
		RecordType: documentFilters[req.Options.DocumentFilter],
	})
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	cols := columnsFor(documentColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}

	for _, d := range docs {
		res.Rows = append(res.Rows, project(cols, map[string]string{
			"document": d.Name,
			"type":     d.Type,
			"size":     strconv.FormatInt(d.Size, 10),
			"record":   Label(d.RecordType) + " " + d.RecordRef,
			"date":     formatDate(d.CreatedAt),
		}))
	}

	return res, nil
}
