package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizreports/internal/core/apperror"
	"bizreports/internal/core/tx"
	"bizreports/pkg/logger"
)

type recordingObserver struct {
	runs    []string
	exports []string
}

func (o *recordingObserver) ReportRun(reportType, outcome string, _ time.Duration) {
	o.runs = append(o.runs, reportType+":"+outcome)
}

func (o *recordingObserver) ReportExport(format, outcome string) {
	o.exports = append(o.exports, format+":"+outcome)
}

type countingTx struct {
	tx.Passthrough
	readOnly int
}

func (c *countingTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	c.readOnly++
	return fn(ctx)
}

func newTestService(src *fakeSource, exp *fakeExporter, obs Observer, strict bool) *Service {
	svc := NewService(src, moneyCurrencies(), nil, exp, obs, ServiceConfig{
		ProductName:  "invoiceninja",
		StrictTotals: strict,
		Now:          func() time.Time { return testToday },
	})
	return svc.WithLogger(logger.Nop())
}

func TestService_Run(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	obs := &recordingObserver{}
	txm := &countingTx{}
	svc := NewService(src, moneyCurrencies(), txm, &fakeExporter{}, obs, ServiceConfig{
		Now: func() time.Time { return testToday },
	}).WithLogger(logger.Nop())

	report, err := svc.Run(context.Background(), rangeRequest("Invoice"))
	require.NoError(t, err)

	assert.Equal(t, TypeInvoice, report.Type)
	assert.Equal(t, "Invoice", report.Title)
	assert.Len(t, report.Rows, 3)
	assert.Equal(t, Row{"Totals", "Amount", "Paid", "Balance"}, report.Summary.Header)
	assert.Equal(t, "US Dollar - Paid", report.Summary.Rows[0][0])
	assert.Equal(t, 1, txm.readOnly)
	assert.Equal(t, []string{"invoice:ok"}, obs.runs)
}

func TestService_RunUnknownType(t *testing.T) {
	src := &fakeSource{}
	obs := &recordingObserver{}
	_, err := newTestService(src, &fakeExporter{}, obs, false).Run(context.Background(), rangeRequest("ledger"))

	require.Error(t, err)
	assert.True(t, apperror.IsConfiguration(err))
	assert.Zero(t, src.calls)
	assert.Equal(t, []string{"ledger:" + apperror.CodeConfiguration}, obs.runs)
}

func TestService_RunInvalidRange(t *testing.T) {
	src := &fakeSource{}
	req := rangeRequest(TypeInvoice)
	req.StartDate, req.EndDate = req.EndDate, req.StartDate

	_, err := newTestService(src, &fakeExporter{}, nil, false).Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Zero(t, src.calls)
}

func TestService_RunSourceError(t *testing.T) {
	boom := errors.New("connection reset")
	src := &fakeSource{err: boom}

	_, err := newTestService(src, &fakeExporter{}, nil, false).Run(context.Background(), rangeRequest(TypePayment))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestService_RunEmptyRange(t *testing.T) {
	src := &fakeSource{}
	report, err := newTestService(src, &fakeExporter{}, nil, true).Run(context.Background(), rangeRequest(TypeExpense))
	require.NoError(t, err)

	assert.Empty(t, report.Rows)
	assert.True(t, report.Summary.IsEmpty())
	assert.NotEmpty(t, report.Columns)
}

func TestService_Export(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	exp := &fakeExporter{}
	obs := &recordingObserver{}

	req := rangeRequest(TypeInvoice)
	req.ExportFormat = "XLSX"
	artifact, err := newTestService(src, exp, obs, false).Export(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01-2024-03-31_invoiceninja-invoice-report.xlsx", artifact.Filename)
	assert.Equal(t, FormatXLSX, exp.format)
	require.Len(t, exp.tables, 2)
	assert.Equal(t, "invoice data", exp.tables[0].Name)
	assert.Contains(t, exp.tables[0].Header(), "Private Notes")
	assert.Equal(t, []string{"xlsx:ok"}, obs.exports)
}

func TestService_ExportCSVSingleTable(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	exp := &fakeExporter{}

	req := rangeRequest(TypeInvoice)
	req.ExportFormat = FormatCSV
	_, err := newTestService(src, exp, nil, false).Export(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, exp.tables, 1)
	rows := exp.tables[0].Rows
	assert.Equal(t, Row{}, rows[4])
	assert.Equal(t, "Totals", rows[5][0])
}

func TestService_ExportUnsupportedFormatFailsFast(t *testing.T) {
	src := &fakeSource{invoices: sampleInvoices()}
	exp := &fakeExporter{}

	req := rangeRequest(TypeInvoice)
	req.ExportFormat = "docx"
	_, err := newTestService(src, exp, nil, false).Export(context.Background(), req)

	require.Error(t, err)
	assert.True(t, apperror.IsUnsupportedFormat(err))
	assert.Zero(t, src.calls)
	assert.Zero(t, exp.calls)
}

func TestService_ExportBackendErrorPropagates(t *testing.T) {
	boom := errors.New("gotenberg unavailable")
	exp := &fakeExporter{err: boom}

	req := rangeRequest(TypeInvoice)
	req.ExportFormat = FormatPDF
	_, err := newTestService(&fakeSource{}, exp, nil, false).Export(context.Background(), req)
	assert.ErrorIs(t, err, boom)
}

func TestService_Filename(t *testing.T) {
	svc := newTestService(&fakeSource{}, &fakeExporter{}, nil, false)
	assert.Equal(t, "2024-01-01-2024-03-31_invoiceninja-tax-rate-report", svc.Filename(rangeRequest(TypeTaxRate)))
}
