package test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/api/routes"
	"github.com/projektkevin/smart-attendance/internal/automation"
	"github.com/projektkevin/smart-attendance/internal/config"
	"github.com/projektkevin/smart-attendance/internal/engine"
	"github.com/projektkevin/smart-attendance/internal/events"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/rules"
	"github.com/projektkevin/smart-attendance/internal/storage"
)

// DefaultServerTime anchors the mock clock of servers built by WithTestServer.
var DefaultServerTime = time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)

// WithTestServer assembles a fully wired server against the in-memory store
// and runs the closure with it. Auth is disabled; the Store field exposes the
// memory store for seeding and assertions.
func WithTestServer(t *testing.T, closure func(s *api.Server, store *storage.Memory)) {
	t.Helper()

	cfg := config.Server{
		Engine: config.Engine{
			HighConfidenceThreshold: 0.8,
			CooldownWindow:          30 * time.Second,
			ConfirmationTimeout:     2 * time.Second,
		},
		Automation: config.Automation{
			PassInterval:   30 * time.Second,
			SweepInterval:  time.Minute,
			EarlyOpenGrace: 10 * time.Minute,
			ItemTimeout:    5 * time.Second,
		},
	}

	store := storage.NewMemory()
	hub := events.NewHub()
	defer hub.Close()
	clock := NewMockClockAt(t, DefaultServerTime)
	broker := engine.NewBroker()

	s := &api.Server{
		Config:     cfg,
		Clock:      clock,
		Hub:        hub,
		Attendance: store,
		Sessions:   store,
		Broker:     broker,
		Engine:     engine.New(cfg.Engine, store, store, broker, hub, clock, nil),
		Automation: automation.NewService(cfg.Automation, store, store, rules.DefaultChain(cfg.Automation.EarlyOpenGrace), hub, clock, nil),
	}

	api.InitRouter(s)
	routes.AttachAllRoutes(s)

	closure(s, store)
}

// PerformRequest issues a request against the server's router and returns the
// recorded response.
func PerformRequest(t *testing.T, s *api.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echoHeaderContentType, "application/json")
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

// OpenTestSession seeds an open session with the given students enrolled.
func OpenTestSession(t *testing.T, store *storage.Memory, sessionID string, studentIDs ...string) {
	t.Helper()

	SeedSession(t, store, &models.Session{
		ID:                   sessionID,
		CourseID:             "course-1",
		StartsAt:             DefaultServerTime,
		EndsAt:               DefaultServerTime.Add(time.Hour),
		LateThresholdMinutes: 15,
		Status:               models.SessionStatusOpen,
	}, studentIDs...)
}
