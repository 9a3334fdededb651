package reports

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"bizreports/internal/domain/currency"
)

// Runner executes one report kind. Runners are read-only.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)

	// RecognizedOptions lists the option keys this kind reads.
	RecognizedOptions() []string
}

// Deps is what a runner is built from.
type Deps struct {
	Source     Source
	Currencies currency.Lookup
	Now        func() time.Time
}

// Factory builds a runner over deps.
type Factory func(Deps) Runner

// column declares an output column; exportOnly columns are dropped from on-screen runs.
type column struct {
	key        string
	exportOnly bool
}

func columnsFor(defs []column, isExport bool) []Column {
	out := make([]Column, 0, len(defs))
	for _, d := range defs {
		if d.exportOnly && !isExport {
			continue
		}
		out = append(out, Column{Key: d.key, Label: Label(d.key)})
	}
	return out
}

// project aligns values with columns. Missing keys yield empty cells.
func project(columns []Column, values map[string]string) Row {
	row := make(Row, len(columns))
	for i, c := range columns {
		row[i] = values[c.Key]
	}
	return row
}

// run carries per-invocation state shared by every kind.
type run struct {
	deps Deps
	req  Request

	accountCurrency int64
	currencies      map[int64]*currency.Currency
}

func newRun(ctx context.Context, deps Deps, req Request) (*run, error) {
	r := &run{deps: deps, req: req, currencies: make(map[int64]*currency.Currency)}
	if req.Options.Converted() {
		id, err := deps.Source.AccountCurrencyID(ctx)
		if err != nil {
			return nil, fmt.Errorf("account currency: %w", err)
		}
		r.accountCurrency = id
	}
	return r, nil
}

func (r *run) today() time.Time {
	now := time.Now
	if r.deps.Now != nil {
		now = r.deps.Now
	}
	return CalendarDay(now())
}

func (r *run) rangeQuery(allowed []string, fallback string) RangeQuery {
	return RangeQuery{
		Start:     r.req.StartDate,
		End:       r.req.EndDate,
		DateField: resolveDateField(r.req, allowed, fallback),
	}
}

// convert maps an amount into the account currency when currency_type=converted.
func (r *run) convert(currencyID int64, rate, amount decimal.Decimal) (int64, decimal.Decimal) {
	if !r.req.Options.Converted() || r.accountCurrency == 0 {
		return currencyID, amount
	}
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	return r.accountCurrency, amount.Mul(rate)
}

func (r *run) money(ctx context.Context, currencyID int64, amount decimal.Decimal) (string, error) {
	cur, ok := r.currencies[currencyID]
	if !ok {
		var err error
		cur, err = r.deps.Currencies.Get(ctx, currencyID)
		if err != nil {
			return "", fmt.Errorf("resolve currency %d: %w", currencyID, err)
		}
		r.currencies[currencyID] = cur
	}
	return cur.Format(amount), nil
}

// resolveDateField picks the requested date field when the kind supports it.
func resolveDateField(req Request, allowed []string, fallback string) string {
	for _, candidate := range []string{req.DateField, req.Options.DateField} {
		if candidate != "" && slices.Contains(allowed, candidate) {
			return candidate
		}
	}
	return fallback
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

// period buckets t by the requested granularity.
func period(t time.Time, grouping string) string {
	switch grouping {
	case GroupByDay:
		return t.Format("2006-01-02")
	case GroupByYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}

// chart accumulates per-period amounts for the on-screen chart.
type chart struct {
	grouping string
	order    []chartKey
	sums     map[chartKey]decimal.Decimal
}

type chartKey struct {
	period     string
	currencyID int64
}

func newChart(grouping string) *chart {
	return &chart{grouping: grouping, sums: make(map[chartKey]decimal.Decimal)}
}

func (c *chart) add(t time.Time, currencyID int64, amount decimal.Decimal) {
	k := chartKey{period: period(t, c.grouping), currencyID: currencyID}
	if _, ok := c.sums[k]; !ok {
		c.order = append(c.order, k)
	}
	c.sums[k] = c.sums[k].Add(amount)
}

func (c *chart) points() []ChartPoint {
	keys := slices.Clone(c.order)
	slices.SortStableFunc(keys, func(a, b chartKey) int {
		switch {
		case a.period < b.period:
			return -1
		case a.period > b.period:
			return 1
		}
		return 0
	})
	out := make([]ChartPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, ChartPoint{
			Period:     k.period,
			CurrencyID: k.currencyID,
			Amount:     c.sums[k].StringFixed(2),
		})
	}
	return out
}
