package reports

import (
	"context"
	"fmt"

	"bizreports/internal/core/types"
)

// --- payment ---

type paymentReport struct{ deps Deps }

func newPaymentReport(d Deps) Runner { return &paymentReport{deps: d} }

func (*paymentReport) RecognizedOptions() []string {
	return []string{OptGroupDatesBy, OptCurrencyType}
}

var paymentColumns = []column{
	{key: "client"},
	{key: "invoice_number"},
	{key: "invoice_date"},
	{key: "amount"},
	{key: "payment_date"},
	{key: "paid"},
	{key: "method"},
	{key: "private_notes", exportOnly: true},
}

func (k *paymentReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	payments, err := k.deps.Source.Payments(ctx, r.rangeQuery([]string{"payment_date"}, "payment_date"))
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}

	cols := columnsFor(paymentColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}
	ch := newChart(req.Options.dateGrouping())

	for _, p := range payments {
		cur, invoiceAmount := r.convert(p.CurrencyID, p.ExchangeRate, p.InvoiceAmount)
		_, paid := r.convert(p.CurrencyID, p.ExchangeRate, p.Amount.Sub(p.Refunded))

		amountText, err := r.money(ctx, cur, invoiceAmount)
		if err != nil {
			return nil, err
		}
		paidText, err := r.money(ctx, cur, paid)
		if err != nil {
			return nil, err
		}

		res.Rows = append(res.Rows, project(cols, map[string]string{
			"client":         p.ClientName,
			"invoice_number": p.InvoiceNumber,
			"invoice_date":   formatDate(p.InvoiceDate),
			"amount":         amountText,
			"payment_date":   formatDate(p.PaymentDate),
			"paid":           paidText,
			"method":         p.Method,
			"private_notes":  p.PrivateNotes,
		}))

		res.Totals.AddAll(cur, "",
			Metric{"amount", invoiceAmount},
			Metric{"paid", paid},
		)
		ch.add(p.PaymentDate, cur, paid)
	}

	res.Chart = ch.points()
	return res, nil
}

// --- profit_and_loss ---

type profitAndLossReport struct{ deps Deps }

func newProfitAndLossReport(d Deps) Runner { return &profitAndLossReport{deps: d} }

func (*profitAndLossReport) RecognizedOptions() []string {
	return []string{OptGroupDatesBy, OptCurrencyType}
}

var profitAndLossColumns = []column{
	{key: "type"},
	{key: "client"},
	{key: "amount"},
	{key: "date"},
	{key: "public_notes", exportOnly: true},
}

// Run lists payments as income and expenses as cost. Totals are keyed by period so every
// entry carries revenue, expenses and profit in that order.
func (k *profitAndLossReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	payments, err := k.deps.Source.Payments(ctx, r.rangeQuery([]string{"payment_date"}, "payment_date"))
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	expenses, err := k.deps.Source.Expenses(ctx, r.rangeQuery([]string{"expense_date"}, "expense_date"))
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	cols := columnsFor(profitAndLossColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}
	grouping := req.Options.dateGrouping()
	ch := newChart(grouping)

	for _, p := range payments {
		cur, amount := r.convert(p.CurrencyID, p.ExchangeRate, p.Amount.Sub(p.Refunded))
		text, err := r.money(ctx, cur, amount)
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, project(cols, map[string]string{
			"type":         Label("payment"),
			"client":       p.ClientName,
			"amount":       text,
			"date":         formatDate(p.PaymentDate),
		}))

		res.Totals.AddAll(cur, period(p.PaymentDate, grouping),
			Metric{"revenue", amount},
			Metric{"expenses", types.Zero()},
			Metric{"profit", amount},
		)
		ch.add(p.PaymentDate, cur, amount)
	}

	for _, e := range expenses {
		cur, amount := r.convert(e.CurrencyID, e.ExchangeRate, e.Amount)
		text, err := r.money(ctx, cur, amount)
		if err != nil {
			return nil, err
		}
		name := e.VendorName
		if name == "" {
			name = e.ClientName
		}
		res.Rows = append(res.Rows, project(cols, map[string]string{
			"type":         Label("expense"),
			"client":       name,
			"amount":       text,
			"date":         formatDate(e.ExpenseDate),
			"public_notes": e.PublicNotes,
		}))

		res.Totals.AddAll(cur, period(e.ExpenseDate, grouping),
			Metric{"revenue", types.Zero()},
			Metric{"expenses", amount},
			Metric{"profit", amount.Neg()},
		)
		ch.add(e.ExpenseDate, cur, amount.Neg())
	}

	res.Chart = ch.points()
	return res, nil
}
