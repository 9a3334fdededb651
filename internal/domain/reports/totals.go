package reports

import (
	"bizreports/internal/core/types"
)

// Metric is one named amount added to a totals entry.
type Metric struct {
	Key    string
	Amount types.Money
}

// TotalsEntry holds the metrics accumulated for one currency and dimension.
// Metric keys keep the order in which they were first added.
type TotalsEntry struct {
	CurrencyID int64
	Dimension  string

	keys   []string
	values map[string]types.Money
}

// Keys returns metric keys in insertion order.
func (e *TotalsEntry) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Value returns the accumulated amount for key (zero when absent).
func (e *TotalsEntry) Value(key string) types.Money {
	return e.values[key]
}

// Values returns amounts aligned with Keys().
func (e *TotalsEntry) Values() []types.Money {
	out := make([]types.Money, len(e.keys))
	for i, k := range e.keys {
		out[i] = e.values[k]
	}
	return out
}

type totalsKey struct {
	currencyID int64
	dimension  string
}

// currencyGroup holds the entries of one currency in dimension first-seen order.
type currencyGroup struct {
	id      int64
	entries []*TotalsEntry
}

// Totals is an insertion-ordered mapping currency -> dimension -> metric -> amount.
// Currencies iterate in first-seen order, and within a currency its dimensions
// iterate in first-seen order.
type Totals struct {
	groups     []*currencyGroup
	byCurrency map[int64]*currencyGroup
	index      map[totalsKey]*TotalsEntry
	size       int
}

// NewTotals creates an empty totals table.
func NewTotals() *Totals {
	return &Totals{
		byCurrency: make(map[int64]*currencyGroup),
		index:      make(map[totalsKey]*TotalsEntry),
	}
}

// Add accumulates amount under (currencyID, dimension, metric).
func (t *Totals) Add(currencyID int64, dimension, metric string, amount types.Money) {
	e := t.entry(currencyID, dimension)
	if _, ok := e.values[metric]; !ok {
		e.keys = append(e.keys, metric)
		e.values[metric] = types.Zero()
	}
	e.values[metric] = e.values[metric].Add(amount)
}

// AddAll adds metrics in the given order, so every entry built through the same call site
// shares one key order.
func (t *Totals) AddAll(currencyID int64, dimension string, metrics ...Metric) {
	for _, m := range metrics {
		t.Add(currencyID, dimension, m.Key, m.Amount)
	}
}

func (t *Totals) entry(currencyID int64, dimension string) *TotalsEntry {
	if t.index == nil {
		t.index = make(map[totalsKey]*TotalsEntry)
		t.byCurrency = make(map[int64]*currencyGroup)
	}
	k := totalsKey{currencyID: currencyID, dimension: dimension}
	if e, ok := t.index[k]; ok {
		return e
	}
	g, ok := t.byCurrency[currencyID]
	if !ok {
		g = &currencyGroup{id: currencyID}
		t.byCurrency[currencyID] = g
		t.groups = append(t.groups, g)
	}
	e := &TotalsEntry{
		CurrencyID: currencyID,
		Dimension:  dimension,
		values:     make(map[string]types.Money),
	}
	t.index[k] = e
	g.entries = append(g.entries, e)
	t.size++
	return e
}

// Entries returns all entries grouped by currency.
func (t *Totals) Entries() []*TotalsEntry {
	if t == nil || t.size == 0 {
		return nil
	}
	out := make([]*TotalsEntry, 0, t.size)
	for _, g := range t.groups {
		out = append(out, g.entries...)
	}
	return out
}

// CurrencyEntries returns the entries of one currency in dimension first-seen order.
func (t *Totals) CurrencyEntries(currencyID int64) []*TotalsEntry {
	if t == nil {
		return nil
	}
	if g, ok := t.byCurrency[currencyID]; ok {
		return g.entries
	}
	return nil
}

// Currencies returns distinct currency ids in first-seen order.
func (t *Totals) Currencies() []int64 {
	if t == nil {
		return nil
	}
	out := make([]int64, 0, len(t.groups))
	for _, g := range t.groups {
		out = append(out, g.id)
	}
	return out
}

// Len returns the number of (currency, dimension) entries.
func (t *Totals) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// IsEmpty reports whether nothing was accumulated.
func (t *Totals) IsEmpty() bool {
	return t.Len() == 0
}
