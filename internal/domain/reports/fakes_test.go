package reports

import (
	"context"
	"fmt"

	"bizreports/internal/core/apperror"
	"bizreports/internal/domain/currency"
)

type fakeCurrencies map[int64]*currency.Currency

func (f fakeCurrencies) Get(_ context.Context, id int64) (*currency.Currency, error) {
	c, ok := f[id]
	if !ok {
		return nil, apperror.NewNotFound("currency", id)
	}
	return c, nil
}

// plainCurrencies formats amounts without symbols or decimals.
func plainCurrencies() fakeCurrencies {
	return fakeCurrencies{
		1: {ID: 1, Name: "US Dollar", Code: "USD"},
		3: {ID: 3, Name: "Euro", Code: "EUR"},
	}
}

func moneyCurrencies() fakeCurrencies {
	return fakeCurrencies{
		1: {ID: 1, Name: "US Dollar", Code: "USD", Symbol: "$", Precision: 2},
		3: {ID: 3, Name: "Euro", Code: "EUR", Symbol: "€", Precision: 2, SwapSymbol: true},
	}
}

type fakeSource struct {
	accountCurrency int64

	invoices   []InvoiceRecord
	quotes     []InvoiceRecord
	items      []InvoiceItemRecord
	taxLines   []TaxLineRecord
	payments   []PaymentRecord
	clients    []ClientRecord
	expenses   []ExpenseRecord
	tasks      []TaskRecord
	activities []ActivityRecord
	documents  []DocumentRecord
	viz        VizData

	calls        int
	lastRange    RangeQuery
	lastInvoiceQ InvoiceQuery
	lastAttachQ  AttachmentQuery
	err          error
}

func (f *fakeSource) touch(q RangeQuery) error {
	f.calls++
	f.lastRange = q
	return f.err
}

func (f *fakeSource) AccountCurrencyID(context.Context) (int64, error) {
	if f.accountCurrency == 0 {
		return 0, fmt.Errorf("no account currency")
	}
	return f.accountCurrency, nil
}

func (f *fakeSource) Invoices(_ context.Context, q InvoiceQuery) ([]InvoiceRecord, error) {
	f.lastInvoiceQ = q
	if err := f.touch(q.RangeQuery); err != nil {
		return nil, err
	}
	if q.Quotes {
		return f.quotes, nil
	}
	if q.OpenOnly {
		var open []InvoiceRecord
		for _, inv := range f.invoices {
			if inv.Balance.IsPositive() {
				open = append(open, inv)
			}
		}
		return open, nil
	}
	return f.invoices, nil
}

func (f *fakeSource) InvoiceItems(_ context.Context, q InvoiceQuery) ([]InvoiceItemRecord, error) {
	f.lastInvoiceQ = q
	return f.items, f.touch(q.RangeQuery)
}

func (f *fakeSource) TaxLines(_ context.Context, q InvoiceQuery) ([]TaxLineRecord, error) {
	f.lastInvoiceQ = q
	return f.taxLines, f.touch(q.RangeQuery)
}

func (f *fakeSource) Payments(_ context.Context, q RangeQuery) ([]PaymentRecord, error) {
	return f.payments, f.touch(q)
}

func (f *fakeSource) Clients(_ context.Context, q RangeQuery) ([]ClientRecord, error) {
	return f.clients, f.touch(q)
}

func (f *fakeSource) Expenses(_ context.Context, q RangeQuery) ([]ExpenseRecord, error) {
	return f.expenses, f.touch(q)
}

func (f *fakeSource) Tasks(_ context.Context, q RangeQuery) ([]TaskRecord, error) {
	return f.tasks, f.touch(q)
}

func (f *fakeSource) Activities(_ context.Context, q RangeQuery) ([]ActivityRecord, error) {
	return f.activities, f.touch(q)
}

func (f *fakeSource) Documents(_ context.Context, q AttachmentQuery) ([]DocumentRecord, error) {
	f.lastAttachQ = q
	return f.documents, f.touch(q.RangeQuery)
}

type fakeExporter struct {
	calls  int
	tables []Table
	format Format
	name   string
	err    error
}

func (f *fakeExporter) Export(_ context.Context, tables []Table, format Format, filename string) (*Artifact, error) {
	f.calls++
	f.tables, f.format, f.name = tables, format, filename
	if f.err != nil {
		return nil, f.err
	}
	return &Artifact{Filename: filename + "." + string(format), ContentType: "text/plain", Body: []byte("ok")}, nil
}

func (f *fakeSource) VizData(context.Context) (*VizData, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &f.viz, nil
}
