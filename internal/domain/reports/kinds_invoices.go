package reports

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

var invoiceDateFields = []string{"invoice_date", "due_date"}

// --- invoice ---

type invoiceReport struct{ deps Deps }

func newInvoiceReport(d Deps) Runner { return &invoiceReport{deps: d} }

func (*invoiceReport) RecognizedOptions() []string {
	return []string{OptDateField, OptInvoiceStatus, OptGroupDatesBy, OptCurrencyType}
}

var invoiceColumns = []column{
	{key: "client"},
	{key: "invoice_number"},
	{key: "invoice_date"},
	{key: "due_date"},
	{key: "amount"},
	{key: "status"},
	{key: "payment_date"},
	{key: "paid"},
	{key: "method"},
	{key: "private_notes", exportOnly: true},
}

func (k *invoiceReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	invoices, err := k.deps.Source.Invoices(ctx, InvoiceQuery{
		RangeQuery: r.rangeQuery(invoiceDateFields, "invoice_date"),
	})
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}

	cols := columnsFor(invoiceColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}
	today := r.today()
	ch := newChart(req.Options.dateGrouping())

	for _, inv := range invoices {
		if !inv.Matches(req.Options.InvoiceStatus, today) {
			continue
		}
		cur, amount := r.convert(inv.CurrencyID, inv.ExchangeRate, inv.Amount)
		_, paid := r.convert(inv.CurrencyID, inv.ExchangeRate, inv.PaidToDate)
		_, balance := r.convert(inv.CurrencyID, inv.ExchangeRate, inv.Balance)

		amountText, err := r.money(ctx, cur, amount)
		if err != nil {
			return nil, err
		}
		paidText, err := r.money(ctx, cur, paid)
		if err != nil {
			return nil, err
		}

		status := inv.StatusLabel(today)
		res.Rows = append(res.Rows, project(cols, map[string]string{
			"client":         inv.ClientName,
			"invoice_number": inv.InvoiceNumber,
			"invoice_date":   formatDate(inv.InvoiceDate),
			"due_date":       formatDatePtr(inv.DueDate),
			"amount":         amountText,
			"status":         status,
			"payment_date":   formatDatePtr(inv.LastPaymentDate),
			"paid":           paidText,
			"method":         inv.PaymentMethod,
			"private_notes":  inv.PrivateNotes,
		}))

		res.Totals.AddAll(cur, status,
			Metric{"amount", amount},
			Metric{"paid", paid},
			Metric{"balance", balance},
		)
		ch.add(inv.InvoiceDate, cur, amount)
	}

	res.Chart = ch.points()
	return res, nil
}

// --- quote ---

type quoteReport struct{ deps Deps }

func newQuoteReport(d Deps) Runner { return &quoteReport{deps: d} }

func (*quoteReport) RecognizedOptions() []string {
	return []string{OptDateField, OptInvoiceStatus, OptGroupDatesBy, OptCurrencyType}
}

var quoteColumns = []column{
	{key: "client"},
	{key: "quote_number"},
	{key: "quote_date"},
	{key: "amount"},
	{key: "status"},
	{key: "public_notes", exportOnly: true},
	{key: "private_notes", exportOnly: true},
}

func (k *quoteReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	quotes, err := k.deps.Source.Invoices(ctx, InvoiceQuery{
		RangeQuery: r.rangeQuery(invoiceDateFields, "invoice_date"),
		Quotes:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("load quotes: %w", err)
	}

	cols := columnsFor(quoteColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}
	today := r.today()
	ch := newChart(req.Options.dateGrouping())

	for _, q := range quotes {
		if !q.Matches(req.Options.InvoiceStatus, today) {
			continue
		}
		cur, amount := r.convert(q.CurrencyID, q.ExchangeRate, q.Amount)
		amountText, err := r.money(ctx, cur, amount)
		if err != nil {
			return nil, err
		}

		status := Label(q.Status)
		res.Rows = append(res.Rows, project(cols, map[string]string{
			"client":        q.ClientName,
			"quote_number":  q.InvoiceNumber,
			"quote_date":    formatDate(q.InvoiceDate),
			"amount":        amountText,
			"status":        status,
			"public_notes":  q.PublicNotes,
			"private_notes": q.PrivateNotes,
		}))

		res.Totals.AddAll(cur, status, Metric{"amount", amount})
		ch.add(q.InvoiceDate, cur, amount)
	}

	res.Chart = ch.points()
	return res, nil
}

// --- aging ---

type agingReport struct{ deps Deps }

func newAgingReport(d Deps) Runner { return &agingReport{deps: d} }

func (*agingReport) RecognizedOptions() []string {
	return []string{OptDateField, OptCurrencyType}
}

var agingColumns = []column{
	{key: "client"},
	{key: "invoice_number"},
	{key: "invoice_date"},
	{key: "due_date"},
	{key: "age"},
	{key: "amount"},
	{key: "balance"},
}

// agingBucket returns the display range an invoice of the given age in days falls into.
func agingBucket(days int) string {
	switch {
	case days <= 30:
		return "0 - 30"
	case days <= 60:
		return "31 - 60"
	case days <= 90:
		return "61 - 90"
	case days <= 120:
		return "91 - 120"
	default:
		return "120+"
	}
}

func (k *agingReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	invoices, err := k.deps.Source.Invoices(ctx, InvoiceQuery{
		RangeQuery: r.rangeQuery(invoiceDateFields, "invoice_date"),
		OpenOnly:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("load open invoices: %w", err)
	}

	cols := columnsFor(agingColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}
	today := r.today()

	for _, inv := range invoices {
		from := inv.InvoiceDate
		if inv.DueDate != nil {
			from = *inv.DueDate
		}
		days := int(today.Sub(from).Hours() / 24)
		if days < 0 {
			days = 0
		}

		cur, amount := r.convert(inv.CurrencyID, inv.ExchangeRate, inv.Amount)
		_, balance := r.convert(inv.CurrencyID, inv.ExchangeRate, inv.Balance)
		amountText, err := r.money(ctx, cur, amount)
		if err != nil {
			return nil, err
		}
		balanceText, err := r.money(ctx, cur, balance)
		if err != nil {
			return nil, err
		}

		bucket := agingBucket(days)
		res.Rows = append(res.Rows, project(cols, map[string]string{
			"client":         inv.ClientName,
			"invoice_number": inv.InvoiceNumber,
			"invoice_date":   formatDate(inv.InvoiceDate),
			"due_date":       formatDatePtr(inv.DueDate),
			"age":            strconv.Itoa(days),
			"amount":         amountText,
			"balance":        balanceText,
		}))

		res.Totals.AddAll(cur, bucket, Metric{"balance", balance})
	}

	return res, nil
}

// --- product ---

type productReport struct{ deps Deps }

func newProductReport(d Deps) Runner { return &productReport{deps: d} }

func (*productReport) RecognizedOptions() []string {
	return []string{OptDateField, OptInvoiceStatus, OptCurrencyType}
}

var productColumns = []column{
	{key: "client"},
	{key: "invoice_number"},
	{key: "invoice_date"},
	{key: "product"},
	{key: "description", exportOnly: true},
	{key: "qty"},
	{key: "cost"},
	{key: "amount"},
}

func (k *productReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	items, err := k.deps.Source.InvoiceItems(ctx, InvoiceQuery{
		RangeQuery: r.rangeQuery(invoiceDateFields, "invoice_date"),
	})
	if err != nil {
		return nil, fmt.Errorf("load invoice items: %w", err)
	}

	cols := columnsFor(productColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}
	today := r.today()

	for _, item := range items {
		if !item.Matches(req.Options.InvoiceStatus, today) {
			continue
		}
		cur, cost := r.convert(item.CurrencyID, item.ExchangeRate, item.Cost)
		amount := cost.Mul(item.Qty)

		costText, err := r.money(ctx, cur, cost)
		if err != nil {
			return nil, err
		}
		amountText, err := r.money(ctx, cur, amount)
		if err != nil {
			return nil, err
		}

		res.Rows = append(res.Rows, project(cols, map[string]string{
			"client":         item.ClientName,
			"invoice_number": item.InvoiceNumber,
			"invoice_date":   formatDate(item.InvoiceDate),
			"product":        item.ProductKey,
			"description":    item.Notes,
			"qty":            item.Qty.String(),
			"cost":           costText,
			"amount":         amountText,
		}))

		res.Totals.AddAll(cur, "", Metric{"amount", amount})
	}

	return res, nil
}

// --- tax_rate ---

type taxRateReport struct{ deps Deps }

func newTaxRateReport(d Deps) Runner { return &taxRateReport{deps: d} }

func (*taxRateReport) RecognizedOptions() []string {
	return []string{OptDateField, OptInvoiceStatus, OptCurrencyType}
}

var taxRateColumns = []column{
	{key: "tax_name"},
	{key: "tax_rate"},
	{key: "amount"},
	{key: "paid"},
}

type taxGroup struct {
	name       string
	rate       decimal.Decimal
	currencyID int64
	amount     decimal.Decimal
	paid       decimal.Decimal
}

func (k *taxRateReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	lines, err := k.deps.Source.TaxLines(ctx, InvoiceQuery{
		RangeQuery: r.rangeQuery(invoiceDateFields, "invoice_date"),
	})
	if err != nil {
		return nil, fmt.Errorf("load tax lines: %w", err)
	}

	today := r.today()
	var groups []*taxGroup
	index := make(map[string]*taxGroup)

	for _, line := range lines {
		if !line.Matches(req.Options.InvoiceStatus, today) {
			continue
		}
		cur, amount := r.convert(line.CurrencyID, line.ExchangeRate, line.Amount)
		_, paid := r.convert(line.CurrencyID, line.ExchangeRate, line.Paid)

		key := fmt.Sprintf("%s|%s|%d", line.TaxName, line.TaxRate.String(), cur)
		g, ok := index[key]
		if !ok {
			g = &taxGroup{name: line.TaxName, rate: line.TaxRate, currencyID: cur}
			index[key] = g
			groups = append(groups, g)
		}
		g.amount = g.amount.Add(amount)
		g.paid = g.paid.Add(paid)
	}

	cols := columnsFor(taxRateColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}

	for _, g := range groups {
		amountText, err := r.money(ctx, g.currencyID, g.amount)
		if err != nil {
			return nil, err
		}
		paidText, err := r.money(ctx, g.currencyID, g.paid)
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, project(cols, map[string]string{
			"tax_name": g.name,
			"tax_rate": g.rate.String() + "%",
			"amount":   amountText,
			"paid":     paidText,
		}))

		res.Totals.AddAll(g.currencyID, g.name,
			Metric{"amount", g.amount},
			Metric{"paid", g.paid},
		)
	}

	return res, nil
}
