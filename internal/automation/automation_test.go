package automation_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/projektkevin/smart-attendance/internal/automation"
	"github.com/projektkevin/smart-attendance/internal/config"
	"github.com/projektkevin/smart-attendance/internal/events"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/rules"
	"github.com/projektkevin/smart-attendance/internal/storage"
	"github.com/projektkevin/smart-attendance/internal/test"
)

var base = time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service  *automation.Service
	store    *storage.Memory
	recorder *test.Recorder
	hub      *events.Hub
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	store := storage.NewMemory()
	hub := events.NewHub()
	t.Cleanup(hub.Close)
	recorder := test.NewRecorder(t, hub)

	cfg := config.Automation{
		PassInterval:   30 * time.Second,
		SweepInterval:  time.Minute,
		EarlyOpenGrace: 10 * time.Minute,
		ItemTimeout:    5 * time.Second,
	}

	service := automation.NewService(
		cfg,
		store,
		store,
		rules.DefaultChain(cfg.EarlyOpenGrace),
		hub,
		test.NewMockClockAt(t, now),
		nil,
	)

	return &fixture{service: service, store: store, recorder: recorder, hub: hub}
}

func seedSession(t *testing.T, store *storage.Memory, session models.Session, studentIDs ...string) {
	t.Helper()

	if session.CourseID == "" {
		session.CourseID = "course-1"
	}
	test.SeedSession(t, store, &session, studentIDs...)
}

func sessionStatus(t *testing.T, store *storage.Memory, id string) models.SessionStatus {
	t.Helper()

	session, err := store.GetSession(context.Background(), id)
	require.NoError(t, err)
	return session.Status
}

func TestAutomationOpensDueSession(t *testing.T) {
	f := newFixture(t, base)

	seedSession(t, f.store, models.Session{
		ID:        "sess-1",
		StartsAt:  base.Add(5 * time.Minute),
		EndsAt:    base.Add(time.Hour),
		Status:    models.SessionStatusPending,
		AutoStart: true,
	})

	require.NoError(t, f.service.RunSessionAutomationPass(context.Background()))

	assert.Equal(t, models.SessionStatusOpen, sessionStatus(t, f.store, "sess-1"))
	f.recorder.WaitForKind(t, events.KindSessionAutoOpened, 1)
	opened, _ := f.recorder.LastOfKind(events.KindSessionAutoOpened)
	assert.Equal(t, "sess-1", opened.SessionID)
	assert.Equal(t, models.SessionStatusOpen, opened.SessionStatus)
}

func TestAutomationSkipsSessionOutsideGrace(t *testing.T) {
	f := newFixture(t, base)

	seedSession(t, f.store, models.Session{
		ID:        "sess-1",
		StartsAt:  base.Add(20 * time.Minute),
		EndsAt:    base.Add(time.Hour),
		Status:    models.SessionStatusPending,
		AutoStart: true,
	})

	require.NoError(t, f.service.RunSessionAutomationPass(context.Background()))

	assert.Equal(t, models.SessionStatusPending, sessionStatus(t, f.store, "sess-1"))
	assert.Empty(t, f.recorder.Events())
}

func TestAutomationClosesEndedSession(t *testing.T) {
	f := newFixture(t, base.Add(2*time.Hour))

	seedSession(t, f.store, models.Session{
		ID:       "sess-1",
		StartsAt: base,
		EndsAt:   base.Add(time.Hour),
		Status:   models.SessionStatusOpen,
		AutoStop: true,
	})

	require.NoError(t, f.service.RunSessionAutomationPass(context.Background()))

	assert.Equal(t, models.SessionStatusClosed, sessionStatus(t, f.store, "sess-1"))
	f.recorder.WaitForKind(t, events.KindSessionAutoClosed, 1)
}

func TestAutomationNeverOpensSecondSession(t *testing.T) {
	f := newFixture(t, base)

	seedSession(t, f.store, models.Session{
		ID:       "sess-open",
		StartsAt: base.Add(-time.Hour),
		EndsAt:   base.Add(time.Hour),
		Status:   models.SessionStatusOpen,
	})
	seedSession(t, f.store, models.Session{
		ID:        "sess-due",
		StartsAt:  base,
		EndsAt:    base.Add(time.Hour),
		Status:    models.SessionStatusPending,
		AutoStart: true,
	})

	require.NoError(t, f.service.RunSessionAutomationPass(context.Background()))

	assert.Equal(t, models.SessionStatusPending, sessionStatus(t, f.store, "sess-due"))
	assert.Zero(t, f.recorder.CountKind(events.KindSessionAutoOpened))
}

func TestAutomationCloseFreesSlotWithinSamePass(t *testing.T) {
	now := base.Add(2 * time.Hour)
	f := newFixture(t, now)

	// The open session has ended; once it auto-closes, the due one may open
	// in the very same pass.
	seedSession(t, f.store, models.Session{
		ID:       "sess-ending",
		StartsAt: base,
		EndsAt:   base.Add(time.Hour),
		Status:   models.SessionStatusOpen,
		AutoStop: true,
	})
	seedSession(t, f.store, models.Session{
		ID:        "sess-next",
		StartsAt:  now,
		EndsAt:    now.Add(time.Hour),
		Status:    models.SessionStatusPending,
		AutoStart: true,
	})

	require.NoError(t, f.service.RunSessionAutomationPass(context.Background()))

	assert.Equal(t, models.SessionStatusClosed, sessionStatus(t, f.store, "sess-ending"))
	assert.Equal(t, models.SessionStatusOpen, sessionStatus(t, f.store, "sess-next"))
}

func TestAutomationIgnoresManualOnlySessions(t *testing.T) {
	f := newFixture(t, base)

	seedSession(t, f.store, models.Session{
		ID:       "sess-manual",
		StartsAt: base,
		EndsAt:   base.Add(time.Hour),
		Status:   models.SessionStatusPending,
	})

	require.NoError(t, f.service.RunSessionAutomationPass(context.Background()))

	assert.Equal(t, models.SessionStatusPending, sessionStatus(t, f.store, "sess-manual"))
}

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockSessionStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Session), args.Error(1)
}

func (m *mockSessionStore) UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockSessionStore) OpenSessionExists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionStore) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func TestAutomationPassIsolatesItemFailures(t *testing.T) {
	now := base.Add(2 * time.Hour)

	sessions := []*models.Session{
		{ID: "sess-a", StartsAt: base, EndsAt: base.Add(time.Hour), Status: models.SessionStatusOpen, AutoStop: true},
		{ID: "sess-b", StartsAt: base, EndsAt: base.Add(time.Hour), Status: models.SessionStatusOpen, AutoStop: true},
	}

	store := &mockSessionStore{}
	store.On("ListSessions", mock.Anything).Return(sessions, nil)
	store.On("UpdateSessionStatus", mock.Anything, "sess-a", models.SessionStatusClosed).
		Return(errors.New("connection reset"))
	store.On("UpdateSessionStatus", mock.Anything, "sess-b", models.SessionStatusClosed).
		Return(nil)

	hub := events.NewHub()
	t.Cleanup(hub.Close)
	recorder := test.NewRecorder(t, hub)

	service := automation.NewService(
		config.Automation{EarlyOpenGrace: 10 * time.Minute},
		store,
		storage.NewMemory(),
		rules.DefaultChain(10*time.Minute),
		hub,
		test.NewMockClockAt(t, now),
		nil,
	)

	require.NoError(t, service.RunSessionAutomationPass(context.Background()))

	store.AssertExpectations(t)
	recorder.WaitForKind(t, events.KindSessionAutoClosed, 1)
	closed, _ := recorder.LastOfKind(events.KindSessionAutoClosed)
	assert.Equal(t, "sess-b", closed.SessionID, "the failing session must not block the rest of the pass")
}

func TestSweepFinalizesPendingOfClosedSession(t *testing.T) {
	now := base.Add(2 * time.Hour)
	f := newFixture(t, now)

	seedSession(t, f.store, models.Session{
		ID:       "sess-1",
		StartsAt: base,
		EndsAt:   base.Add(time.Hour),
		Status:   models.SessionStatusClosed,
	}, "student-1", "student-2", "student-3", "student-4", "student-5")

	// Two of the five were seen during the session.
	for _, studentID := range []string{"student-4", "student-5"} {
		record, err := f.store.GetAttendance(context.Background(), studentID, "sess-1")
		require.NoError(t, err)
		record.Status = models.AttendanceStatusPresent
		require.NoError(t, f.store.SaveAttendance(context.Background(), record))
	}

	require.NoError(t, f.service.RunAbsentSweepPass(context.Background()))

	for _, studentID := range []string{"student-1", "student-2", "student-3"} {
		record, err := f.store.GetAttendance(context.Background(), studentID, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, models.AttendanceStatusAbsent, record.Status)
		assert.Equal(t, models.MarkMethodAuto, record.Method)
		require.NotNil(t, record.MarkedAt)
		assert.True(t, record.MarkedAt.Equal(now))
	}
	for _, studentID := range []string{"student-4", "student-5"} {
		record, err := f.store.GetAttendance(context.Background(), studentID, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	}

	f.recorder.WaitForKind(t, events.KindBatchAbsentFinalized, 1)
	batch, _ := f.recorder.LastOfKind(events.KindBatchAbsentFinalized)
	assert.Equal(t, 3, batch.Count)
	assert.Equal(t, 1, f.recorder.CountKind(events.KindBatchAbsentFinalized))
}

func TestSweepIsIdempotent(t *testing.T) {
	now := base.Add(2 * time.Hour)
	f := newFixture(t, now)

	seedSession(t, f.store, models.Session{
		ID:       "sess-1",
		StartsAt: base,
		EndsAt:   base.Add(time.Hour),
		Status:   models.SessionStatusClosed,
	}, "student-1", "student-2")

	require.NoError(t, f.service.RunAbsentSweepPass(context.Background()))
	f.recorder.WaitForKind(t, events.KindBatchAbsentFinalized, 1)

	// Second run finds nothing pending: no writes, no notification.
	require.NoError(t, f.service.RunAbsentSweepPass(context.Background()))
	require.NoError(t, f.service.RunAbsentSweepPass(context.Background()))

	assert.Equal(t, 1, f.recorder.CountKind(events.KindBatchAbsentFinalized))
}

func TestSweepSkipsOpenSessions(t *testing.T) {
	f := newFixture(t, base.Add(30*time.Minute))

	seedSession(t, f.store, models.Session{
		ID:       "sess-1",
		StartsAt: base,
		EndsAt:   base.Add(time.Hour),
		Status:   models.SessionStatusOpen,
	}, "student-1")

	require.NoError(t, f.service.RunAbsentSweepPass(context.Background()))

	record, err := f.store.GetAttendance(context.Background(), "student-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPending, record.Status)
	assert.Empty(t, f.recorder.Events())
}
