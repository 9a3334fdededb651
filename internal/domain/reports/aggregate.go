package reports

import (
	"context"
	"fmt"
	"slices"

	"bizreports/internal/core/apperror"
	"bizreports/internal/domain/currency"
)

// LabelFunc translates a metric key into its display label.
type LabelFunc func(key string) string

// Summary is the flattened totals table: a header plus one row per currency and dimension.
type Summary struct {
	Header Row   `json:"header"`
	Rows   []Row `json:"rows"`
}

// IsEmpty reports whether the summary carries no table at all.
func (s Summary) IsEmpty() bool {
	return len(s.Header) == 0
}

// Aggregator flattens Totals into a Summary.
type Aggregator struct {
	Currencies currency.Lookup
	Labels     LabelFunc

	// Strict rejects totals whose entries disagree on metric keys.
	Strict bool
}

// NewAggregator creates an aggregator with the default label table.
func NewAggregator(currencies currency.Lookup, strict bool) *Aggregator {
	return &Aggregator{Currencies: currencies, Labels: Label, Strict: strict}
}

// Flatten builds the header from the first entry's metric keys and emits one row per entry,
// labeled "<currency name>[ - <dimension>]" with amounts formatted in that currency.
func (a *Aggregator) Flatten(ctx context.Context, totals *Totals) (Summary, error) {
	entries := totals.Entries()
	if len(entries) == 0 {
		return Summary{}, nil
	}

	keys := entries[0].Keys()
	if a.Strict {
		if err := checkConsistent(keys, entries); err != nil {
			return Summary{}, err
		}
	}

	labels := a.Labels
	if labels == nil {
		labels = Label
	}

	header := make(Row, 0, len(keys)+1)
	header = append(header, labels("totals"))
	for _, k := range keys {
		header = append(header, labels(k))
	}

	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		cur, err := a.Currencies.Get(ctx, e.CurrencyID)
		if err != nil {
			return Summary{}, fmt.Errorf("resolve currency %d: %w", e.CurrencyID, err)
		}

		label := cur.Name
		if e.Dimension != "" {
			label += " - " + e.Dimension
		}

		row := make(Row, 0, len(keys)+1)
		row = append(row, label)
		for _, v := range e.Values() {
			row = append(row, cur.Format(v))
		}
		rows = append(rows, row)
	}

	return Summary{Header: header, Rows: rows}, nil
}

func checkConsistent(expected []string, entries []*TotalsEntry) error {
	for _, e := range entries[1:] {
		got := e.Keys()
		if !slices.Equal(expected, got) {
			return apperror.NewAggregationInconsistency(expected, got).
				WithDetail("currency_id", e.CurrencyID).
				WithDetail("dimension", e.Dimension)
		}
	}
	return nil
}
