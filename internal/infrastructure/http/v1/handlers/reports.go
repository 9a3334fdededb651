package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bizreports/internal/core/apperror"
	"bizreports/internal/core/id"
	"bizreports/internal/core/security"
	"bizreports/internal/domain/reports"
	"bizreports/internal/infrastructure/http/v1/dto"
)

// ReportService runs and exports reports.
type ReportService interface {
	Run(ctx context.Context, req reports.Request) (*reports.Report, error)
	Export(ctx context.Context, req reports.Request) (*reports.Artifact, error)
	Dataviz(ctx context.Context) ([]reports.VizClient, error)
}

// ScheduleService manages the caller's recurring exports.
type ScheduleService interface {
	Schedule(ctx context.Context, req reports.Request, frequency reports.Frequency) (*reports.ScheduledReport, error)
	Cancel(ctx context.Context, scheduleID id.ID, owner reports.Owner) error
	List(ctx context.Context, owner reports.Owner) ([]reports.ScheduledReport, error)
}

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	reports   ReportService
	schedules ScheduleService
	flags     security.FeatureFlagProvider
	now       func() time.Time
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, reportService ReportService, scheduleService ScheduleService) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		reports:     reportService,
		schedules:   scheduleService,
		flags:       security.AllowAll{},
		now:         time.Now,
	}
}

// WithFlags gates report runs on the account's reports feature.
func (h *ReportsHandler) WithFlags(flags security.FeatureFlagProvider) *ReportsHandler {
	if flags != nil {
		h.flags = flags
	}
	return h
}

// WithClock replaces the clock used for default date ranges.
func (h *ReportsHandler) WithClock(now func() time.Time) *ReportsHandler {
	h.now = now
	return h
}

// Build handles GET /reports: runs the selected report and performs the requested action.
func (h *ReportsHandler) Build(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.ReportQuery
	if !h.BindQuery(c, &q) {
		return
	}

	req, err := q.ToRequest(h.now())
	if err != nil {
		h.Error(c, err)
		return
	}

	action := q.NormalizedAction()
	switch action {
	case dto.ActionNone, dto.ActionExport, dto.ActionSchedule, dto.ActionCancelSchedule:
	default:
		h.Error(c, apperror.NewValidation("unknown action").WithDetail("action", q.Action))
		return
	}

	owner, err := reports.OwnerFromContext(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	// Without the reports feature no action runs; the caller still sees their schedules.
	if !h.flags.IsEnabled(ctx, security.FlagAdvancedReports) {
		scheduled, err := h.schedules.List(ctx, owner)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, dto.NewLockedReportResponse(req, scheduled))
		return
	}

	if action == dto.ActionExport {
		h.export(c, req)
		return
	}

	var report *reports.Report
	if q.HasReportType() {
		if report, err = h.reports.Run(ctx, req); err != nil {
			h.Error(c, err)
			return
		}
	}

	switch action {
	case dto.ActionSchedule:
		if _, err := h.schedules.Schedule(ctx, req, reports.Frequency(q.Frequency)); err != nil {
			h.Error(c, err)
			return
		}
	case dto.ActionCancelSchedule:
		scheduleID, err := id.Parse(strings.TrimSpace(q.ScheduledReportID))
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid scheduled_report_id").
				WithDetail("field", "scheduled_report_id").
				WithDetail("value", q.ScheduledReportID))
			return
		}
		if err := h.schedules.Cancel(ctx, scheduleID, owner); err != nil {
			h.Error(c, err)
			return
		}
	}

	scheduled, err := h.schedules.List(ctx, owner)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewReportResponse(req, report, scheduled))
}

func (h *ReportsHandler) export(c *gin.Context, req reports.Request) {
	artifact, err := h.reports.Export(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, artifact.ContentType, artifact.Body)
}

// Dataviz handles GET /reports/dataviz: the account's clients with invoices, items and
// contacts, sensitive fields removed. Accounts without reports get an empty list.
func (h *ReportsHandler) Dataviz(c *gin.Context) {
	ctx := c.Request.Context()
	if !h.flags.IsEnabled(ctx, security.FlagAdvancedReports) {
		h.OK(c, dto.DatavizResponse{Clients: []reports.VizClient{}, Message: "reports are not enabled for this account"})
		return
	}

	clients, err := h.reports.Dataviz(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DatavizResponse{Clients: clients})
}

// Types handles GET /reports/types.
func (h *ReportsHandler) Types(c *gin.Context) {
	types := reports.Types()
	out := make([]dto.ReportTypeResponse, 0, len(types))
	for _, t := range types {
		_, factory, err := reports.Resolve(string(t))
		if err != nil {
			h.Error(c, err)
			return
		}
		className, _ := reports.CanonicalName(t)
		out = append(out, dto.ReportTypeResponse{
			ID:        string(t),
			Label:     t.Title(),
			ClassName: className,
			Options:   factory(reports.Deps{}).RecognizedOptions(),
		})
	}
	h.OK(c, gin.H{"items": out})
}
