package reports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// --- expense ---

type expenseReport struct{ deps Deps }

func newExpenseReport(d Deps) Runner { return &expenseReport{deps: d} }

func (*expenseReport) RecognizedOptions() []string {
	return []string{OptGroupDatesBy, OptCurrencyType}
}

var expenseColumns = []column{
	{key: "vendor"},
	{key: "client"},
	{key: "expense_date"},
	{key: "category"},
	{key: "amount"},
	{key: "public_notes", exportOnly: true},
	{key: "private_notes", exportOnly: true},
}

func (k *expenseReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	expenses, err := k.deps.Source.Expenses(ctx, r.rangeQuery([]string{"expense_date"}, "expense_date"))
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	cols := columnsFor(expenseColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}
	ch := newChart(req.Options.dateGrouping())

	for _, e := range expenses {
		cur, amount := r.convert(e.CurrencyID, e.ExchangeRate, e.Amount)
		text, err := r.money(ctx, cur, amount)
		if err != nil {
			return nil, err
		}

		res.Rows = append(res.Rows, project(cols, map[string]string{
			"vendor":        e.VendorName,
			"client":        e.ClientName,
			"expense_date":  formatDate(e.ExpenseDate),
			"category":      e.Category,
			"amount":        text,
			"public_notes":  e.PublicNotes,
			"private_notes": e.PrivateNotes,
		}))

		res.Totals.AddAll(cur, e.Category, Metric{"amount", amount})
		ch.add(e.ExpenseDate, cur, amount)
	}

	res.Chart = ch.points()
	return res, nil
}

// --- task ---

type taskReport struct{ deps Deps }

func newTaskReport(d Deps) Runner { return &taskReport{deps: d} }

func (*taskReport) RecognizedOptions() []string { return nil }

var taskColumns = []column{
	{key: "client"},
	{key: "date"},
	{key: "project"},
	{key: "description"},
	{key: "duration"},
	{key: "amount"},
}

var secondsPerHour = decimal.NewFromInt(3600)

func (k *taskReport) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := newRun(ctx, k.deps, req)
	if err != nil {
		return nil, err
	}

	tasks, err := k.deps.Source.Tasks(ctx, RangeQuery{
		Start:     req.StartDate,
		End:       req.EndDate,
		DateField: "task_date",
	})
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	cols := columnsFor(taskColumns, req.IsExport)
	res := &Result{Columns: cols, Totals: NewTotals()}

	for _, t := range tasks {
		hours := decimal.NewFromInt(t.Seconds).Div(secondsPerHour).Round(2)
		amount := hours.Mul(t.Rate)
		text, err := r.money(ctx, t.CurrencyID, amount)
		if err != nil {
			return nil, err
		}

		res.Rows = append(res.Rows, project(cols, map[string]string{
			"client":      t.ClientName,
			"date":        formatDate(t.StartedAt),
			"project":     t.ProjectName,
			"description": t.Description,
			"duration":    formatDuration(t.Seconds),
			"amount":      text,
		}))

		res.Totals.AddAll(t.CurrencyID, t.ProjectName,
			Metric{"duration", hours},
			Metric{"amount", amount},
		)
	}

	return res, nil
}

// formatDuration renders seconds as H:MM:SS.
func formatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
