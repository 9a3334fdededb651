package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizreports/internal/core/types"
)

var testToday = day(2024, 4, 15)

func testDeps(src *fakeSource) Deps {
	return Deps{
		Source:     src,
		Currencies: moneyCurrencies(),
		Now:        func() time.Time { return testToday },
	}
}

func rangeRequest(rt ReportType) Request {
	return Request{ReportType: rt, StartDate: day(2024, 1, 1), EndDate: day(2024, 3, 31)}
}

func columnKeys(cols []Column) []string {
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.Key
	}
	return keys
}

func ptr(t time.Time) *time.Time { return &t }

func sampleInvoices() []InvoiceRecord {
	return []InvoiceRecord{
		{
			InvoiceState:  InvoiceState{Status: StatusPaid, DueDate: ptr(day(2024, 2, 1)), Balance: types.Zero()},
			ClientName:    "Acme",
			InvoiceNumber: "0001",
			InvoiceDate:   day(2024, 1, 10),
			Amount:        types.MustMoney("100"),
			PaidToDate:    types.MustMoney("100"),
			CurrencyID:    1,
			PrivateNotes:  "vip",
		},
		{
			InvoiceState:  InvoiceState{Status: StatusSent, DueDate: ptr(day(2024, 3, 1)), Balance: types.MustMoney("50")},
			ClientName:    "Globex",
			InvoiceNumber: "0002",
			InvoiceDate:   day(2024, 2, 5),
			Amount:        types.MustMoney("50"),
			PaidToDate:    types.Zero(),
			CurrencyID:    3,
			ExchangeRate:  types.MustMoney("1.1"),
		},
		{
			InvoiceState:  InvoiceState{Status: StatusDraft, Balance: types.MustMoney("20")},
			ClientName:    "Initech",
			InvoiceNumber: "0003",
			InvoiceDate:   day(2024, 3, 20),
			Amount:        types.MustMoney("20"),
			CurrencyID:    1,
		},
	}
}

func TestInvoiceReport_ColumnsDependOnExport(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	runner := newInvoiceReport(testDeps(src))

	screen, err := runner.Run(context.Background(), rangeRequest(TypeInvoice))
	require.NoError(t, err)
	assert.NotContains(t, columnKeys(screen.Columns), "private_notes")

	req := rangeRequest(TypeInvoice)
	req.IsExport = true
	export, err := runner.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, columnKeys(export.Columns), "private_notes")

	for _, row := range export.Rows {
		assert.Len(t, row, len(export.Columns))
	}
}

func TestInvoiceReport_RowsAndTotals(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	res, err := newInvoiceReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeInvoice))
	require.NoError(t, err)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, "Acme", res.Rows[0][0])
	assert.Equal(t, "$100.00", res.Rows[0][4])
	assert.Equal(t, "Overdue", res.Rows[1][5])
	assert.Equal(t, "invoice_date", src.lastRange.DateField)

	entries := res.Totals.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "Paid", entries[0].Dimension)
	assert.Equal(t, []string{"amount", "paid", "balance"}, entries[0].Keys())
	assert.Equal(t, int64(1), entries[1].CurrencyID)
	assert.Equal(t, int64(3), entries[2].CurrencyID)
}

func TestInvoiceReport_StatusFilter(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	runner := newInvoiceReport(testDeps(src))

	cases := map[string][]string{
		StatusPaid:    {"0001"},
		StatusUnpaid:  {"0002"},
		StatusOverdue: {"0002"},
		StatusDraft:   {"0003"},
		StatusAll:     {"0001", "0002", "0003"},
	}
	for status, want := range cases {
		req := rangeRequest(TypeInvoice)
		req.Options.InvoiceStatus = status
		res, err := runner.Run(context.Background(), req)
		require.NoError(t, err)

		var got []string
		for _, row := range res.Rows {
			got = append(got, row[1])
		}
		assert.Equal(t, want, got, status)
	}
}

func TestInvoiceReport_DateFieldAndConversion(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices(), accountCurrency: 1}
	req := rangeRequest(TypeInvoice)
	req.DateField = "due_date"
	req.Options.CurrencyType = CurrencyConverted

	res, err := newInvoiceReport(testDeps(src)).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "due_date", src.lastRange.DateField)
	assert.Equal(t, []int64{1}, res.Totals.Currencies())
	assert.Equal(t, "$55.00", res.Rows[1][4])
}

func TestInvoiceReport_IgnoresUnknownDateField(t *testing.T) {
	src := &fakeSource{}
	req := rangeRequest(TypeInvoice)
	req.DateField = "created_at; drop table invoices"

	_, err := newInvoiceReport(testDeps(src)).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "invoice_date", src.lastRange.DateField)
}

func TestInvoiceReport_Chart(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	res, err := newInvoiceReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeInvoice))
	require.NoError(t, err)

	require.Len(t, res.Chart, 3)
	assert.Equal(t, ChartPoint{Period: "2024-01", CurrencyID: 1, Amount: "100.00"}, res.Chart[0])
}

func TestAgingReport_Buckets(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	res, err := newAgingReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeAging))
	require.NoError(t, err)

	assert.True(t, src.lastInvoiceQ.OpenOnly)
	require.Len(t, res.Rows, 2)

	entries := res.Totals.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "31 - 60", entries[0].Dimension)
	assert.Equal(t, "0 - 30", entries[1].Dimension)
}

func TestAgingBucket(t *testing.T) {
	assert.Equal(t, "0 - 30", agingBucket(0))
	assert.Equal(t, "0 - 30", agingBucket(30))
	assert.Equal(t, "31 - 60", agingBucket(31))
	assert.Equal(t, "91 - 120", agingBucket(120))
	assert.Equal(t, "120+", agingBucket(121))
}

func TestQuoteReport_UsesQuotes(t *testing.T) {
	src := &fakeSource{quotes: []InvoiceRecord{{
		InvoiceState:  InvoiceState{Status: "approved"},
		ClientName:    "Acme",
		InvoiceNumber: "Q-1",
		InvoiceDate:   day(2024, 1, 2),
		Amount:        types.MustMoney("10"),
		CurrencyID:    1,
	}}}
	res, err := newQuoteReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeQuote))
	require.NoError(t, err)

	assert.True(t, src.lastInvoiceQ.Quotes)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Approved", res.Totals.Entries()[0].Dimension)
}

func TestProductReport_Amounts(t *testing.T) {
	src := &fakeSource{items: []InvoiceItemRecord{
		{InvoiceState: InvoiceState{Status: StatusSent}, ProductKey: "widget", Qty: types.MustMoney("3"), Cost: types.MustMoney("2.5"), CurrencyID: 1},
		{InvoiceState: InvoiceState{Status: StatusPaid}, ProductKey: "gadget", Qty: types.MustMoney("1"), Cost: types.MustMoney("4"), CurrencyID: 1},
	}}
	res, err := newProductReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeProduct))
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "$7.50", res.Rows[0][len(res.Rows[0])-1])
	assert.Equal(t, "11.5", res.Totals.Entries()[0].Value("amount").String())
}

func TestTaxRateReport_GroupsByTax(t *testing.T) {
	src := &fakeSource{taxLines: []TaxLineRecord{
		{TaxName: "VAT", TaxRate: types.MustMoney("20"), Amount: types.MustMoney("10"), Paid: types.MustMoney("10"), CurrencyID: 1},
		{TaxName: "VAT", TaxRate: types.MustMoney("20"), Amount: types.MustMoney("4"), Paid: types.Zero(), CurrencyID: 1},
		{TaxName: "GST", TaxRate: types.MustMoney("5"), Amount: types.MustMoney("1"), Paid: types.MustMoney("1"), CurrencyID: 3},
	}}
	res, err := newTaxRateReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeTaxRate))
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, Row{"VAT", "20%", "$14.00", "$10.00"}, res.Rows[0])
	assert.Equal(t, "GST", res.Totals.Entries()[1].Dimension)
}

func TestPaymentReport_NetOfRefunds(t *testing.T) {
	src := &fakeSource{payments: []PaymentRecord{{
		ClientName:    "Acme",
		InvoiceAmount: types.MustMoney("100"),
		PaymentDate:   day(2024, 2, 1),
		Amount:        types.MustMoney("60"),
		Refunded:      types.MustMoney("10"),
		CurrencyID:    1,
	}}}
	res, err := newPaymentReport(testDeps(src)).Run(context.Background(), rangeRequest(TypePayment))
	require.NoError(t, err)

	assert.Equal(t, "payment_date", src.lastRange.DateField)
	assert.Equal(t, "50", res.Totals.Entries()[0].Value("paid").String())
}

func TestProfitAndLossReport_ConsistentMetrics(t *testing.T) {
	src := &fakeSource{
		payments: []PaymentRecord{{ClientName: "Acme", PaymentDate: day(2024, 1, 5), Amount: types.MustMoney("100"), CurrencyID: 1}},
		expenses: []ExpenseRecord{
			{VendorName: "Office Co", ExpenseDate: day(2024, 1, 9), Amount: types.MustMoney("30"), CurrencyID: 1},
			{ClientName: "Globex", ExpenseDate: day(2024, 2, 9), Amount: types.MustMoney("5"), CurrencyID: 1},
		},
	}
	res, err := newProfitAndLossReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeProfitAndLoss))
	require.NoError(t, err)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, "Payment", res.Rows[0][0])
	assert.Equal(t, "Globex", res.Rows[2][1])

	entries := res.Totals.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, []string{"revenue", "expenses", "profit"}, e.Keys())
	}
	assert.Equal(t, "2024-01", entries[0].Dimension)
	assert.Equal(t, "70", entries[0].Value("profit").String())

	_, err = NewAggregator(moneyCurrencies(), true).Flatten(context.Background(), res.Totals)
	assert.NoError(t, err)
}

func TestExpenseReport_DimensionIsCategory(t *testing.T) {
	src := &fakeSource{expenses: []ExpenseRecord{
		{Category: "Travel", ExpenseDate: day(2024, 1, 1), Amount: types.MustMoney("3"), CurrencyID: 1},
		{Category: "Travel", ExpenseDate: day(2024, 1, 2), Amount: types.MustMoney("4"), CurrencyID: 1},
	}}
	res, err := newExpenseReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeExpense))
	require.NoError(t, err)

	require.Equal(t, 1, res.Totals.Len())
	assert.Equal(t, "7", res.Totals.Entries()[0].Value("amount").String())
}

func TestTaskReport_Duration(t *testing.T) {
	src := &fakeSource{tasks: []TaskRecord{{
		ClientName:  "Acme",
		ProjectName: "Website",
		StartedAt:   day(2024, 1, 3),
		Seconds:     5400,
		Rate:        types.MustMoney("40"),
		CurrencyID:  1,
	}}}
	res, err := newTaskReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeTask))
	require.NoError(t, err)

	assert.Equal(t, Row{"Acme", "2024-01-03", "Website", "", "1:30:00", "$60.00"}, res.Rows[0])
	assert.Equal(t, "Website", res.Totals.Entries()[0].Dimension)
}

func TestClientReport_ExportColumns(t *testing.T) {
	src := &fakeSource{clients: []ClientRecord{{
		Name: "Acme", IDNumber: "42", Amount: types.MustMoney("10"), Paid: types.MustMoney("4"), Balance: types.MustMoney("6"), CurrencyID: 1,
	}}}
	runner := newClientReport(testDeps(src))

	screen, err := runner.Run(context.Background(), rangeRequest(TypeClient))
	require.NoError(t, err)
	assert.Equal(t, []string{"client", "amount", "paid", "balance"}, columnKeys(screen.Columns))

	req := rangeRequest(TypeClient)
	req.IsExport = true
	export, err := runner.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, export.Columns, len(clientColumns))
}

func TestActivityReport_NoTotals(t *testing.T) {
	src := &fakeSource{activities: []ActivityRecord{{
		CreatedAt: time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), ClientName: "Acme", UserName: "jo", Description: "created invoice 0001",
	}}}
	res, err := newActivityReport(testDeps(src)).Run(context.Background(), rangeRequest(TypeActivity))
	require.NoError(t, err)

	assert.Equal(t, Row{"2024-01-01 09:30", "Acme", "jo", "created invoice 0001"}, res.Rows[0])
	assert.True(t, res.Totals.IsEmpty())
}

func TestDocumentReport_Filter(t *testing.T) {
	src := &fakeSource{documents: []DocumentRecord{{
		Name: "receipt.pdf", Type: "pdf", Size: 2048, RecordType: "expense", RecordRef: "E-7", CreatedAt: day(2024, 1, 1),
	}}}
	req := rangeRequest(TypeDocument)
	req.Options.DocumentFilter = "expenses"

	res, err := newDocumentReport(testDeps(src)).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "expense", src.lastAttachQ.RecordType)
	assert.Equal(t, Row{"receipt.pdf", "pdf", "2048", "Expense E-7", "2024-01-01"}, res.Rows[0])
}

func TestRecognizedOptions(t *testing.T) {
	for _, rt := range Types() {
		_, factory, err := Resolve(string(rt))
		require.NoError(t, err)
		for _, opt := range factory(Deps{}).RecognizedOptions() {
			assert.Contains(t, []string{OptDateField, OptInvoiceStatus, OptGroupDatesBy, OptDocumentFilter, OptCurrencyType}, opt)
		}
	}
}

func TestInvoiceReport_OverdueUsesLocalDay(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	deps := testDeps(src)
	// Evening of the due date on the US west coast is already the next day in UTC.
	deps.Now = func() time.Time { return time.Date(2024, 3, 1, 20, 0, 0, 0, time.FixedZone("PST", -8*60*60)) }

	res, err := newInvoiceReport(deps).Run(context.Background(), rangeRequest(TypeInvoice))
	require.NoError(t, err)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, "Globex", res.Rows[1][0])
	assert.Equal(t, Label(StatusSent), res.Rows[1][5])
}
