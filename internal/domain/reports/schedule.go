package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bizreports/internal/core/apperror"
	appctx "bizreports/internal/core/context"
	"bizreports/internal/core/id"
	"bizreports/pkg/logger"
)

// Frequency is how often a scheduled report is delivered.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// ParseFrequency validates a raw frequency.
func ParseFrequency(raw string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return f, nil
	}
	return "", apperror.NewValidation("unsupported frequency").
		WithDetail("field", "frequency").
		WithDetail("value", raw)
}

// Next returns the send date following from.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// Window returns the report range covered by a delivery on sendDate:
// the period that ended the day before.
func (f Frequency) Window(sendDate time.Time) (time.Time, time.Time) {
	end := CalendarDay(sendDate).AddDate(0, 0, -1)
	var start time.Time
	switch f {
	case FrequencyWeekly:
		start = end.AddDate(0, 0, -6)
	case FrequencyBiweekly:
		start = end.AddDate(0, 0, -13)
	case FrequencyMonthly:
		start = end.AddDate(0, -1, 1)
	default:
		start = end
	}
	return start, end
}

// ScheduleConfig is the serialized request a schedule replays.
type ScheduleConfig struct {
	ReportType   ReportType `json:"report_type"`
	DateField    string     `json:"date_field,omitempty"`
	ExportFormat Format     `json:"export_format"`
	Options      Options    `json:"options"`
}

// ScheduledReport is a recurring export owned by one user of one account.
type ScheduledReport struct {
	ID         id.ID           `db:"id" json:"id"`
	AccountID  string          `db:"account_id" json:"accountId"`
	UserID     string          `db:"user_id" json:"userId"`
	ReportType ReportType      `db:"report_type" json:"reportType"`
	Frequency  Frequency       `db:"frequency" json:"frequency"`
	Config     json.RawMessage `db:"config" json:"config"`
	SendDate   time.Time       `db:"send_date" json:"sendDate"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`

	// Failed deliveries of the current send date, and when the next attempt may run.
	FailedAttempts int        `db:"failed_attempts" json:"failedAttempts"`
	RetryAt        *time.Time `db:"retry_at" json:"retryAt,omitempty"`
}

// DecodeConfig parses the stored config.
func (s *ScheduledReport) DecodeConfig() (ScheduleConfig, error) {
	var cfg ScheduleConfig
	if err := json.Unmarshal(s.Config, &cfg); err != nil {
		return ScheduleConfig{}, fmt.Errorf("decode schedule %s config: %w", s.ID, err)
	}
	return cfg, nil
}

// Request rebuilds the export request for a delivery on sendDate.
func (s *ScheduledReport) Request(sendDate time.Time) (Request, error) {
	cfg, err := s.DecodeConfig()
	if err != nil {
		return Request{}, err
	}
	start, end := s.Frequency.Window(sendDate)
	return Request{
		ReportType:   cfg.ReportType,
		StartDate:    start,
		EndDate:      end,
		DateField:    cfg.DateField,
		Options:      cfg.Options,
		IsExport:     true,
		ExportFormat: cfg.ExportFormat,
	}, nil
}

// Owner identifies who a schedule belongs to.
type Owner struct {
	AccountID string
	UserID    string
}

// OwnerFromContext returns the owner of the current request.
func OwnerFromContext(ctx context.Context) (Owner, error) {
	user := appctx.GetUser(ctx)
	if user == nil || user.TenantID == "" || user.UserID == "" {
		return Owner{}, apperror.NewUnauthorized("user context required")
	}
	return Owner{AccountID: user.TenantID, UserID: user.UserID}, nil
}

// ScheduleStore persists scheduled reports.
type ScheduleStore interface {
	Create(ctx context.Context, s *ScheduledReport) error
	// Delete removes the schedule only when owner matches. It reports how many rows went.
	Delete(ctx context.Context, owner Owner, scheduleID id.ID) (int64, error)
	ListByOwner(ctx context.Context, owner Owner) ([]ScheduledReport, error)
	// Due returns schedules whose send date and retry time have both passed,
	// least-failed first.
	Due(ctx context.Context, now time.Time, limit int) ([]ScheduledReport, error)
	// SetSendDate moves a schedule to next and clears its retry state.
	SetSendDate(ctx context.Context, scheduleID id.ID, next time.Time) error
	SetRetry(ctx context.Context, scheduleID id.ID, attempts int, retryAt time.Time) error
}

// Delivery retry tuning. The delay doubles per failure up to RetryMaxDelay;
// after MaxDeliveryAttempts the send date is skipped.
const (
	RetryBaseDelay      = 15 * time.Minute
	RetryMaxDelay       = 12 * time.Hour
	MaxDeliveryAttempts = 6
)

// RetryDelay returns the wait before attempt number attempts+1.
func RetryDelay(attempts int) time.Duration {
	delay := RetryBaseDelay
	for i := 1; i < attempts && delay < RetryMaxDelay; i++ {
		delay *= 2
	}
	return min(delay, RetryMaxDelay)
}

// ScheduleService manages recurring exports.
type ScheduleService struct {
	store ScheduleStore
	now   func() time.Time
	log   *logger.Logger
}

// NewScheduleService creates the scheduling service.
func NewScheduleService(store ScheduleStore, now func() time.Time) *ScheduleService {
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		store: store,
		now:   now,
		log:   logger.Default().WithComponent("report-schedules"),
	}
}

// Schedule stores req as a recurring export for the current user.
func (s *ScheduleService) Schedule(ctx context.Context, req Request, frequency Frequency) (*ScheduledReport, error) {
	owner, err := OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	reportType, _, err := Resolve(string(req.ReportType))
	if err != nil {
		return nil, err
	}
	if frequency, err = ParseFrequency(string(frequency)); err != nil {
		return nil, err
	}
	format := req.ExportFormat
	if format == "" {
		format = FormatCSV
	}
	if format, err = ParseFormat(string(format)); err != nil {
		return nil, err
	}

	config, err := json.Marshal(ScheduleConfig{
		ReportType:   reportType,
		DateField:    req.DateField,
		ExportFormat: format,
		Options:      req.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("encode schedule config: %w", err)
	}

	now := s.now()
	sched := &ScheduledReport{
		ID:         id.New(),
		AccountID:  owner.AccountID,
		UserID:     owner.UserID,
		ReportType: reportType,
		Frequency:  frequency,
		Config:     config,
		SendDate:   frequency.Next(CalendarDay(now)),
		CreatedAt:  now,
	}
	if err := s.store.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("create scheduled report: %w", err)
	}

	s.log.WithContext(ctx).Infow("report scheduled",
		"schedule_id", sched.ID,
		"report_type", reportType,
		"frequency", frequency,
		"send_date", sched.SendDate.Format(DateLayout),
	)
	return sched, nil
}

// Cancel deletes the schedule when owner holds it. Missing or foreign ids are not errors.
func (s *ScheduleService) Cancel(ctx context.Context, scheduleID id.ID, owner Owner) error {
	n, err := s.store.Delete(ctx, owner, scheduleID)
	if err != nil {
		return fmt.Errorf("cancel scheduled report: %w", err)
	}
	if n == 0 {
		s.log.WithContext(ctx).Debugw("cancel matched no schedule", "schedule_id", scheduleID)
	}
	return nil
}

// List returns the schedules of owner.
func (s *ScheduleService) List(ctx context.Context, owner Owner) ([]ScheduledReport, error) {
	items, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list scheduled reports: %w", err)
	}
	return items, nil
}

// Due returns schedules whose send date has passed.
func (s *ScheduleService) Due(ctx context.Context, limit int) ([]ScheduledReport, error) {
	items, err := s.store.Due(ctx, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("load due scheduled reports: %w", err)
	}
	return items, nil
}

// MarkSent advances the schedule to its next send date.
func (s *ScheduleService) MarkSent(ctx context.Context, sched *ScheduledReport) (time.Time, error) {
	next := s.nextSendDate(sched)
	if err := s.store.SetSendDate(ctx, sched.ID, next); err != nil {
		return time.Time{}, fmt.Errorf("advance scheduled report %s: %w", sched.ID, err)
	}
	return next, nil
}

// MarkFailed backs the schedule off so it stops crowding out due work. It returns when the
// schedule becomes due again; once the attempts run out that is the next send date.
func (s *ScheduleService) MarkFailed(ctx context.Context, sched *ScheduledReport) (time.Time, error) {
	attempts := sched.FailedAttempts + 1
	log := s.log.WithContext(ctx).With("schedule_id", sched.ID, "attempts", attempts)

	if attempts >= MaxDeliveryAttempts {
		next := s.nextSendDate(sched)
		if err := s.store.SetSendDate(ctx, sched.ID, next); err != nil {
			return time.Time{}, fmt.Errorf("skip scheduled report %s: %w", sched.ID, err)
		}
		log.Warnw("scheduled report skipped after repeated failures",
			"send_date", sched.SendDate.Format(DateLayout),
			"next_send_date", next.Format(DateLayout),
		)
		return next, nil
	}

	retryAt := s.now().Add(RetryDelay(attempts))
	if err := s.store.SetRetry(ctx, sched.ID, attempts, retryAt); err != nil {
		return time.Time{}, fmt.Errorf("back off scheduled report %s: %w", sched.ID, err)
	}
	log.Debugw("scheduled report backed off", "retry_at", retryAt)
	return retryAt, nil
}

func (s *ScheduleService) nextSendDate(sched *ScheduledReport) time.Time {
	next := sched.Frequency.Next(CalendarDay(sched.SendDate))
	today := CalendarDay(s.now())
	for !next.After(today) {
		next = sched.Frequency.Next(next)
	}
	return next
}
