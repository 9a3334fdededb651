package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizreports/internal/core/apperror"
	appctx "bizreports/internal/core/context"
	"bizreports/internal/core/id"
	"bizreports/internal/core/security"
	"bizreports/internal/domain/reports"
	"bizreports/pkg/logger"
)

type fakeSchedules struct {
	mu     sync.Mutex
	due    []reports.ScheduledReport
	dueErr error
	sent   []id.ID
	failed []id.ID
}

func (f *fakeSchedules) Due(context.Context, int) ([]reports.ScheduledReport, error) {
	return f.due, f.dueErr
}

func (f *fakeSchedules) MarkSent(_ context.Context, sched *reports.ScheduledReport) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sched.ID)
	return sched.Frequency.Next(sched.SendDate), nil
}

func (f *fakeSchedules) MarkFailed(_ context.Context, sched *reports.ScheduledReport) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, sched.ID)
	return sched.SendDate.Add(reports.RetryBaseDelay), nil
}

// fakeOwners grants view_all to every user unless listed as missing or revoked.
type fakeOwners struct {
	missing map[string]bool
	revoked map[string]bool
}

func (f fakeOwners) User(_ context.Context, accountID, userID string) (*appctx.UserContext, error) {
	if f.missing[userID] {
		return nil, apperror.NewNotFound("user", userID)
	}
	user := &appctx.UserContext{UserID: userID, TenantID: accountID}
	if !f.revoked[userID] {
		user.Permissions = []string{appctx.PermissionViewAll}
	}
	return user, nil
}

type exportCall struct {
	req   reports.Request
	owner string
	user  string
}

type fakeExporter struct {
	mu    sync.Mutex
	calls []exportCall
	fail  map[reports.ReportType]bool
}

func (f *fakeExporter) Export(ctx context.Context, req reports.Request) (*reports.Artifact, error) {
	f.mu.Lock()
	f.calls = append(f.calls, exportCall{req: req, owner: appctx.GetTenantID(ctx), user: appctx.GetUserID(ctx)})
	f.mu.Unlock()
	if f.fail[req.ReportType] {
		return nil, errors.New("export failed")
	}
	return &reports.Artifact{
		Filename:    string(req.ReportType) + "-report.csv",
		ContentType: "text/csv",
		Body:        []byte("a,b\n"),
	}, nil
}

type recorder struct {
	mu       sync.Mutex
	outcomes []error
}

func (r *recorder) ScheduledDelivery(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, err)
}

func schedule(t *testing.T, account string, rt reports.ReportType) reports.ScheduledReport {
	t.Helper()
	cfg, err := json.Marshal(reports.ScheduleConfig{ReportType: rt, ExportFormat: reports.FormatCSV})
	require.NoError(t, err)
	return reports.ScheduledReport{
		ID:         id.New(),
		AccountID:  account,
		UserID:     "user-" + account,
		ReportType: rt,
		Frequency:  reports.FrequencyWeekly,
		Config:     cfg,
		SendDate:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	}
}

func TestWorker_RunOnce(t *testing.T) {
	dir := t.TempDir()
	ok := schedule(t, "acct-1", reports.TypeInvoice)
	broken := schedule(t, "acct-2", reports.TypePayment)

	schedules := &fakeSchedules{due: []reports.ScheduledReport{ok, broken}}
	exporter := &fakeExporter{fail: map[reports.ReportType]bool{reports.TypePayment: true}}
	metrics := &recorder{}

	w := NewWorker(WorkerConfig{
		Schedules: schedules,
		Owners:    fakeOwners{},
		Exporter:  exporter,
		Deliverer: NewFileDeliverer(dir),
		Metrics:   metrics,
	}, logger.Nop())

	assert.Equal(t, 1, w.RunOnce(context.Background()))

	assert.Equal(t, []id.ID{ok.ID}, schedules.sent)
	assert.Equal(t, []id.ID{broken.ID}, schedules.failed)
	require.Len(t, metrics.outcomes, 2)

	require.Len(t, exporter.calls, 2)
	for _, call := range exporter.calls {
		assert.True(t, call.req.IsExport)
		assert.Equal(t, reports.FormatCSV, call.req.ExportFormat)
		assert.Equal(t, "2024-03-04", call.req.StartDate.Format(reports.DateLayout))
		assert.Equal(t, "2024-03-10", call.req.EndDate.Format(reports.DateLayout))
		assert.Equal(t, "user-"+call.owner, call.user)
	}

	body, err := os.ReadFile(filepath.Join(dir, "acct-1", "invoice-report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(body))

	_, err = os.Stat(filepath.Join(dir, "acct-2"))
	assert.True(t, os.IsNotExist(err))
}

func TestWorker_RunOnceDueError(t *testing.T) {
	exporter := &fakeExporter{}
	w := NewWorker(WorkerConfig{
		Schedules: &fakeSchedules{dueErr: errors.New("db down")},
		Owners:    fakeOwners{},
		Exporter:  exporter,
		Deliverer: NewFileDeliverer(t.TempDir()),
	}, logger.Nop())

	assert.Equal(t, 0, w.RunOnce(context.Background()))
	assert.Empty(t, exporter.calls)
}

func TestFileDeliverer_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	sched := schedule(t, "acct-1", reports.TypeExpense)
	artifact := &reports.Artifact{Filename: "../escape.pdf", Body: []byte("%PDF")}

	require.NoError(t, NewFileDeliverer(dir).Deliver(context.Background(), &sched, artifact))

	entries, err := os.ReadDir(filepath.Join(dir, "acct-1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "escape.pdf", entries[0].Name())
}

// memorySchedules is an in-memory reports.ScheduleStore ordered like the SQL store.
type memorySchedules struct {
	mu    sync.Mutex
	items map[id.ID]reports.ScheduledReport
}

func newMemorySchedules(items ...reports.ScheduledReport) *memorySchedules {
	m := &memorySchedules{items: make(map[id.ID]reports.ScheduledReport)}
	for _, s := range items {
		m.items[s.ID] = s
	}
	return m
}

func (m *memorySchedules) Create(_ context.Context, s *reports.ScheduledReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = *s
	return nil
}

func (m *memorySchedules) Delete(context.Context, reports.Owner, id.ID) (int64, error) {
	return 0, nil
}

func (m *memorySchedules) ListByOwner(context.Context, reports.Owner) ([]reports.ScheduledReport, error) {
	return nil, nil
}

func (m *memorySchedules) Due(_ context.Context, now time.Time, limit int) ([]reports.ScheduledReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reports.ScheduledReport
	for _, s := range m.items {
		if !s.SendDate.After(now) && (s.RetryAt == nil || !s.RetryAt.After(now)) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b reports.ScheduledReport) int {
		if a.FailedAttempts != b.FailedAttempts {
			return a.FailedAttempts - b.FailedAttempts
		}
		if c := a.SendDate.Compare(b.SendDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memorySchedules) SetSendDate(_ context.Context, scheduleID id.ID, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.items[scheduleID]
	s.SendDate = next
	s.FailedAttempts = 0
	s.RetryAt = nil
	m.items[scheduleID] = s
	return nil
}

func (m *memorySchedules) SetRetry(_ context.Context, scheduleID id.ID, attempts int, retryAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.items[scheduleID]
	s.FailedAttempts = attempts
	s.RetryAt = &retryAt
	m.items[scheduleID] = s
	return nil
}

func TestWorker_FailingSchedulesDoNotStarveBatch(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	var failing []reports.ScheduledReport
	for i := 0; i < 3; i++ {
		s := schedule(t, "acct-broken", reports.TypePayment)
		s.SendDate = time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC)
		failing = append(failing, s)
	}
	healthy := schedule(t, "acct-1", reports.TypeInvoice)

	store := newMemorySchedules(append(failing, healthy)...)
	w := NewWorker(WorkerConfig{
		Schedules: reports.NewScheduleService(store, func() time.Time { return now }),
		Owners:    fakeOwners{},
		Exporter:  &fakeExporter{fail: map[reports.ReportType]bool{reports.TypePayment: true}},
		Deliverer: NewFileDeliverer(dir),
		BatchSize: 2,
	}, logger.Nop())

	assert.Equal(t, 0, w.RunOnce(context.Background()))
	assert.Equal(t, 1, w.RunOnce(context.Background()))

	_, err := os.Stat(filepath.Join(dir, "acct-1", "invoice-report.csv"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), store.items[healthy.ID].SendDate)
	for _, s := range failing {
		got := store.items[s.ID]
		assert.Equal(t, 1, got.FailedAttempts)
		require.NotNil(t, got.RetryAt)
		assert.Equal(t, now.Add(reports.RetryBaseDelay), *got.RetryAt)
	}

	// Nothing is due until the backoff elapses.
	assert.Equal(t, 0, w.RunOnce(context.Background()))
}

func TestWorker_SkipsRevokedOwnersAndDisabledAccounts(t *testing.T) {
	dir := t.TempDir()
	allowed := schedule(t, "acct-1", reports.TypeInvoice)
	revoked := schedule(t, "acct-2", reports.TypeInvoice)
	removed := schedule(t, "acct-3", reports.TypeInvoice)
	disabled := schedule(t, "acct-free", reports.TypeInvoice)

	schedules := &fakeSchedules{due: []reports.ScheduledReport{allowed, revoked, removed, disabled}}
	exporter := &fakeExporter{}
	metrics := &recorder{}
	w := NewWorker(WorkerConfig{
		Schedules: schedules,
		Owners: fakeOwners{
			revoked: map[string]bool{revoked.UserID: true},
			missing: map[string]bool{removed.UserID: true},
		},
		Flags: security.NewInMemoryFlags().
			SetFlag(security.FlagAdvancedReports, true).
			SetAccountFlag("acct-free", security.FlagAdvancedReports, false),
		Exporter:  exporter,
		Deliverer: NewFileDeliverer(dir),
		Metrics:   metrics,
	}, logger.Nop())

	assert.Equal(t, 1, w.RunOnce(context.Background()))

	require.Len(t, exporter.calls, 1)
	assert.Equal(t, "acct-1", exporter.calls[0].owner)
	assert.ElementsMatch(t, []id.ID{allowed.ID, revoked.ID, removed.ID, disabled.ID}, schedules.sent)
	assert.Empty(t, schedules.failed)
	assert.Len(t, metrics.outcomes, 1)
}
