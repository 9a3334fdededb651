package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bizreports/internal/core/apperror"
	appctx "bizreports/internal/core/context"
	"bizreports/internal/core/security"
	"bizreports/internal/domain/reports"
	"bizreports/pkg/logger"
)

const maxParallelDeliveries = 4

// errSkipped marks a schedule whose send date was passed over without a delivery.
var errSkipped = errors.New("delivery skipped")

// DueSchedules is the part of the schedule service the worker drives.
type DueSchedules interface {
	Due(ctx context.Context, limit int) ([]reports.ScheduledReport, error)
	MarkSent(ctx context.Context, sched *reports.ScheduledReport) (time.Time, error)
	MarkFailed(ctx context.Context, sched *reports.ScheduledReport) (time.Time, error)
}

// OwnerDirectory resolves the current permissions of a schedule's owner.
type OwnerDirectory interface {
	User(ctx context.Context, accountID, userID string) (*appctx.UserContext, error)
}

// ReportExporter produces the artifact for one request.
type ReportExporter interface {
	Export(ctx context.Context, req reports.Request) (*reports.Artifact, error)
}

// Deliverer hands a finished artifact to its recipient.
type Deliverer interface {
	Deliver(ctx context.Context, sched *reports.ScheduledReport, artifact *reports.Artifact) error
}

// DeliveryRecorder counts delivery outcomes.
type DeliveryRecorder interface {
	ScheduledDelivery(err error)
}

// WorkerConfig holds worker dependencies and tuning. Owners is required; a nil Flags
// enables reports for every account.
type WorkerConfig struct {
	Schedules     DueSchedules
	Owners        OwnerDirectory
	Flags         security.FeatureFlagProvider
	Exporter      ReportExporter
	Deliverer     Deliverer
	Metrics       DeliveryRecorder
	Interval      time.Duration
	BatchSize     int
	ExportTimeout time.Duration
}

// Worker polls for due schedules and delivers their exports.
type Worker struct {
	cfg WorkerConfig
	log *logger.Logger
}

// NewWorker creates a worker. Zero tuning values get defaults.
func NewWorker(cfg WorkerConfig, log *logger.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = time.Minute
	}
	if cfg.Flags == nil {
		cfg.Flags = security.AllowAll{}
	}
	return &Worker{cfg: cfg, log: log.WithComponent("worker")}
}

// Run processes batches until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce delivers one batch of due schedules and returns how many succeeded.
func (w *Worker) RunOnce(ctx context.Context) int {
	due, err := w.cfg.Schedules.Due(ctx, w.cfg.BatchSize)
	if err != nil {
		w.log.Errorw("failed to load due schedules", "error", err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	results := make([]bool, len(due))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDeliveries)
	for i := range due {
		g.Go(func() error {
			sched := &due[i]
			err := w.deliver(gctx, sched)
			if errors.Is(err, errSkipped) {
				return nil
			}
			if w.cfg.Metrics != nil {
				w.cfg.Metrics.ScheduledDelivery(err)
			}
			if err != nil {
				w.fail(gctx, sched, err)
				return nil
			}
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	delivered := 0
	for _, ok := range results {
		if ok {
			delivered++
		}
	}
	w.log.Infow("scheduled report batch done", "due", len(due), "delivered", delivered)
	return delivered
}

// fail logs a failed delivery and backs the schedule off.
func (w *Worker) fail(ctx context.Context, sched *reports.ScheduledReport, cause error) {
	retryAt, err := w.cfg.Schedules.MarkFailed(ctx, sched)
	if err != nil {
		w.log.Errorw("failed to back off scheduled report",
			"schedule_id", sched.ID.String(),
			"error", err,
		)
	}
	w.log.Errorw("scheduled report failed",
		"schedule_id", sched.ID.String(),
		"account_id", sched.AccountID,
		"report_type", string(sched.ReportType),
		"attempt", sched.FailedAttempts+1,
		"retry_at", retryAt,
		"error", cause,
	)
}

// deliver exports sched as its owner and advances it. Failures are returned for fail to
// back off; a revoked owner or a disabled reports feature skips the send date.
func (w *Worker) deliver(ctx context.Context, sched *reports.ScheduledReport) error {
	ctx, err := w.ownerContext(ctx, sched)
	if err != nil {
		return err
	}
	if !w.cfg.Flags.IsEnabled(ctx, security.FlagAdvancedReports) {
		return w.skip(ctx, sched, "reports feature disabled for account")
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.ExportTimeout)
	defer cancel()

	req, err := sched.Request(sched.SendDate)
	if err != nil {
		return err
	}

	artifact, err := w.cfg.Exporter.Export(ctx, req)
	if err != nil {
		return err
	}

	if err := w.cfg.Deliverer.Deliver(ctx, sched, artifact); err != nil {
		return err
	}

	next, err := w.cfg.Schedules.MarkSent(ctx, sched)
	if err != nil {
		return err
	}
	logger.Info(ctx, "scheduled report delivered",
		"schedule_id", sched.ID.String(),
		"file", artifact.Filename,
		"next_send_date", next.Format(reports.DateLayout),
	)
	return nil
}

// ownerContext scopes ctx to the schedule's owner as they are now, with a fresh trace.
// An owner who was removed or lost view_all skips the send date.
func (w *Worker) ownerContext(ctx context.Context, sched *reports.ScheduledReport) (context.Context, error) {
	ctx = appctx.WithNewTrace(ctx)
	user, err := w.cfg.Owners.User(ctx, sched.AccountID, sched.UserID)
	switch {
	case apperror.IsNotFound(err):
		return ctx, w.skip(ctx, sched, "owner no longer exists")
	case err != nil:
		return ctx, fmt.Errorf("resolve schedule owner: %w", err)
	case !user.HasPermission(appctx.PermissionViewAll):
		return ctx, w.skip(appctx.WithUser(ctx, user), sched, "owner lacks "+appctx.PermissionViewAll)
	}
	return appctx.WithUser(ctx, user), nil
}

// skip advances sched past its send date without delivering and returns errSkipped.
func (w *Worker) skip(ctx context.Context, sched *reports.ScheduledReport, reason string) error {
	next, err := w.cfg.Schedules.MarkSent(ctx, sched)
	if err != nil {
		return fmt.Errorf("skip scheduled report: %w", err)
	}
	logger.Warn(ctx, "scheduled report skipped",
		"schedule_id", sched.ID.String(),
		"account_id", sched.AccountID,
		"reason", reason,
		"next_send_date", next.Format(reports.DateLayout),
	)
	return errSkipped
}
