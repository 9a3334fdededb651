package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bizreports/internal/core/id"
	"bizreports/internal/domain/reports"
	"bizreports/internal/infrastructure/storage/postgres"
)

const scheduleTable = "scheduled_reports"

var _ reports.ScheduleStore = (*ScheduleRepo)(nil)

// ScheduleRepo implements reports.ScheduleStore.
type ScheduleRepo struct {
	txm        *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewScheduleRepo creates a new scheduled report repository.
func NewScheduleRepo(txm *postgres.TxManager) *ScheduleRepo {
	return &ScheduleRepo{
		txm:        txm,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.ExtractDBColumns[reports.ScheduledReport](),
	}
}

func (r *ScheduleRepo) insertQuery(s *reports.ScheduledReport) squirrel.InsertBuilder {
	return r.builder.Insert(scheduleTable).SetMap(postgres.StructToMap(s))
}

// Create inserts a schedule.
func (r *ScheduleRepo) Create(ctx context.Context, s *reports.ScheduledReport) error {
	sql, args, err := r.insertQuery(s).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.QueryError("insert "+scheduleTable, err)
	}
	return nil
}

func (r *ScheduleRepo) deleteQuery(owner reports.Owner, scheduleID id.ID) squirrel.DeleteBuilder {
	return r.builder.Delete(scheduleTable).
		Where(squirrel.Eq{
			"id":         scheduleID,
			"account_id": owner.AccountID,
			"user_id":    owner.UserID,
		})
}

// Delete removes the schedule only when it belongs to owner.
func (r *ScheduleRepo) Delete(ctx context.Context, owner reports.Owner, scheduleID id.ID) (int64, error) {
	sql, args, err := r.deleteQuery(owner, scheduleID).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.QueryError("delete "+scheduleTable, err)
	}
	return tag.RowsAffected(), nil
}

func (r *ScheduleRepo) listQuery(owner reports.Owner) squirrel.SelectBuilder {
	return r.builder.Select(r.selectCols...).
		From(scheduleTable).
		Where(squirrel.Eq{"account_id": owner.AccountID, "user_id": owner.UserID}).
		OrderBy("created_at")
}

// ListByOwner returns the schedules of one user of one account.
func (r *ScheduleRepo) ListByOwner(ctx context.Context, owner reports.Owner) ([]reports.ScheduledReport, error) {
	return r.selectSchedules(ctx, r.listQuery(owner))
}

func (r *ScheduleRepo) dueQuery(now time.Time, limit int) squirrel.SelectBuilder {
	q := r.builder.Select(r.selectCols...).
		From(scheduleTable).
		Where(squirrel.LtOrEq{"send_date": now}).
		Where(squirrel.Or{
			squirrel.Eq{"retry_at": nil},
			squirrel.LtOrEq{"retry_at": now},
		}).
		OrderBy("failed_attempts", "send_date", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

// Due returns schedules of every account whose send date has passed and that are not
// waiting out a retry delay.
func (r *ScheduleRepo) Due(ctx context.Context, now time.Time, limit int) ([]reports.ScheduledReport, error) {
	return r.selectSchedules(ctx, r.dueQuery(now, limit))
}

func (r *ScheduleRepo) sendDateQuery(scheduleID id.ID, next time.Time) squirrel.UpdateBuilder {
	return r.builder.Update(scheduleTable).
		Set("send_date", next).
		Set("failed_attempts", 0).
		Set("retry_at", nil).
		Where(squirrel.Eq{"id": scheduleID})
}

// SetSendDate moves a schedule to its next delivery and clears its retry state.
func (r *ScheduleRepo) SetSendDate(ctx context.Context, scheduleID id.ID, next time.Time) error {
	return r.exec(ctx, "update send date", r.sendDateQuery(scheduleID, next))
}

func (r *ScheduleRepo) retryQuery(scheduleID id.ID, attempts int, retryAt time.Time) squirrel.UpdateBuilder {
	return r.builder.Update(scheduleTable).
		Set("failed_attempts", attempts).
		Set("retry_at", retryAt).
		Where(squirrel.Eq{"id": scheduleID})
}

// SetRetry records a failed delivery and when to try again.
func (r *ScheduleRepo) SetRetry(ctx context.Context, scheduleID id.ID, attempts int, retryAt time.Time) error {
	return r.exec(ctx, "update retry", r.retryQuery(scheduleID, attempts, retryAt))
}

func (r *ScheduleRepo) exec(ctx context.Context, operation string, q squirrel.UpdateBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.QueryError(operation, err)
	}
	return nil
}

func (r *ScheduleRepo) selectSchedules(ctx context.Context, q squirrel.SelectBuilder) ([]reports.ScheduledReport, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []reports.ScheduledReport
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.QueryError("select "+scheduleTable, err)
	}
	return items, nil
}
