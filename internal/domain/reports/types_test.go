package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizreports/internal/core/apperror"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRequest_Validate(t *testing.T) {
	ok := Request{ReportType: TypeInvoice, StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 31)}
	require.NoError(t, ok.Validate())

	same := Request{ReportType: TypeInvoice, StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 1)}
	require.NoError(t, same.Validate())

	reversed := Request{ReportType: TypeInvoice, StartDate: day(2024, 2, 1), EndDate: day(2024, 1, 1)}
	err := reversed.Validate()
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	badFormat := ok
	badFormat.IsExport = true
	badFormat.ExportFormat = "docx"
	assert.True(t, apperror.IsUnsupportedFormat(badFormat.Validate()))

	missing := Request{ReportType: TypeInvoice}
	assert.True(t, apperror.IsValidation(missing.Validate()))
}

func TestParseFormat(t *testing.T) {
	for _, raw := range []string{"csv", "PDF", " xlsx ", "zip"} {
		_, err := ParseFormat(raw)
		assert.NoError(t, err, raw)
	}

	_, err := ParseFormat("json")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid format request to export report", appErr.Message)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("start_date", "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 29), d)

	_, err = ParseDate("start_date", "29/02/2024")
	assert.True(t, apperror.IsValidation(err))
}

func TestParseOptions_IgnoresUnknownKeys(t *testing.T) {
	opts := ParseOptions(map[string]string{
		"invoice_status":  "Paid",
		"group_dates_by":  "year",
		"currency_type":   "converted",
		"document_filter": "expenses",
		"colour":          "blue",
	})

	assert.Equal(t, Options{
		InvoiceStatus:  StatusPaid,
		GroupDatesBy:   GroupByYear,
		CurrencyType:   CurrencyConverted,
		DocumentFilter: "expenses",
	}, opts)
	assert.True(t, opts.Converted())
	assert.NotContains(t, opts.Map(), "colour")
}

func TestOptions_DateGroupingDefaultsToMonth(t *testing.T) {
	assert.Equal(t, GroupByMonth, Options{}.dateGrouping())
	assert.Equal(t, GroupByMonth, Options{GroupDatesBy: "week"}.dateGrouping())
	assert.Equal(t, GroupByDay, Options{GroupDatesBy: GroupByDay}.dateGrouping())
}
