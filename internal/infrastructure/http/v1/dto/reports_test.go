package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizreports/internal/domain/reports"
)

func TestReportQuery_DefaultRangeUsesCalendarDay(t *testing.T) {
	today := time.Date(2024, 5, 20, 22, 0, 0, 0, time.FixedZone("PST", -8*60*60))

	req, err := ReportQuery{}.ToRequest(today)
	require.NoError(t, err)

	assert.Equal(t, reports.TypeInvoice, req.ReportType)
	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), req.EndDate)
	assert.Equal(t, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), req.StartDate)
}

func TestReportQuery_ExplicitRange(t *testing.T) {
	req, err := ReportQuery{
		ReportType: "payment",
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-31",
		Action:     "export",
		Format:     "xlsx",
	}.ToRequest(time.Now())
	require.NoError(t, err)

	assert.Equal(t, reports.ReportType("payment"), req.ReportType)
	assert.True(t, req.IsExport)
	assert.Equal(t, reports.FormatXLSX, req.ExportFormat)
	assert.Equal(t, "2024-01-31", req.EndDate.Format(reports.DateLayout))
}
