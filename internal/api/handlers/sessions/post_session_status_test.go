package sessions_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/storage"
	"github.com/projektkevin/smart-attendance/internal/test"
)

func seedPendingSession(t *testing.T, store *storage.Memory, id string) {
	t.Helper()

	test.SeedSession(t, store, &models.Session{
		ID:       id,
		CourseID: "course-1",
		StartsAt: test.DefaultServerTime,
		EndsAt:   test.DefaultServerTime.Add(time.Hour),
		Status:   models.SessionStatusPending,
	})
}

func TestPostSessionStatusOpensSession(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		seedPendingSession(t, store, "sess-1")

		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/sessions/sess-1/status", `{"status":"open"}`)
		require.Equal(t, http.StatusOK, res.Code)

		session, err := store.GetSession(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusOpen, session.Status)
	})
}

func TestPostSessionStatusRejectsSecondOpen(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		test.OpenTestSession(t, store, "sess-open")
		seedPendingSession(t, store, "sess-2")

		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/sessions/sess-2/status", `{"status":"open"}`)
		assert.Equal(t, http.StatusConflict, res.Code)

		session, err := store.GetSession(context.Background(), "sess-2")
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusPending, session.Status)
	})
}

func TestPostSessionStatusRejectsReopen(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		seedPendingSession(t, store, "sess-1")
		require.NoError(t, store.UpdateSessionStatus(context.Background(), "sess-1", models.SessionStatusClosed))

		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/sessions/sess-1/status", `{"status":"open"}`)
		assert.Equal(t, http.StatusConflict, res.Code)
	})
}

func TestPostSessionStatusUnknownSession(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/sessions/nope/status", `{"status":"open"}`)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestPostSessionStatusInvalidStatus(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		seedPendingSession(t, store, "sess-1")

		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/sessions/sess-1/status", `{"status":"paused"}`)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})
}
