package confirmations_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/engine"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/storage"
	"github.com/projektkevin/smart-attendance/internal/test"
)

// queueConfirmation pushes one low-confidence detection through the engine
// and returns the resulting pending request.
func queueConfirmation(t *testing.T, s *api.Server, store *storage.Memory) engine.PendingConfirmation {
	t.Helper()

	test.OpenTestSession(t, store, "sess-1", "student-1")

	res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/detections",
		`{"student_id":"student-1","session_id":"sess-1","confidence":0.5}`)
	require.Equal(t, http.StatusAccepted, res.Code)

	var pending []engine.PendingConfirmation
	require.Eventually(t, func() bool {
		pending = s.Broker.Pending()
		return len(pending) == 1
	}, time.Second, 5*time.Millisecond)

	return pending[0]
}

func TestGetConfirmationsListsPending(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		request := queueConfirmation(t, s, store)

		res := test.PerformRequest(t, s, http.MethodGet, "/api/v1/confirmations", "")
		require.Equal(t, http.StatusOK, res.Code)

		var body struct {
			Confirmations []engine.PendingConfirmation `json:"confirmations"`
		}
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
		require.Len(t, body.Confirmations, 1)
		assert.Equal(t, request.ID, body.Confirmations[0].ID)
		assert.Equal(t, "student-1", body.Confirmations[0].Record.StudentID)
	})
}

func TestPostConfirmationConfirms(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		request := queueConfirmation(t, s, store)

		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/confirmations/"+request.ID, `{"confirmed":true}`)
		require.Equal(t, http.StatusOK, res.Code)

		require.Eventually(t, func() bool {
			record, err := store.GetAttendance(context.Background(), "student-1", "sess-1")
			return err == nil && record.Status == models.AttendanceStatusPresent
		}, time.Second, 5*time.Millisecond)
	})
}

func TestPostConfirmationDenies(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		request := queueConfirmation(t, s, store)

		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/confirmations/"+request.ID, `{"confirmed":false}`)
		require.Equal(t, http.StatusOK, res.Code)

		require.Eventually(t, func() bool {
			return len(s.Broker.Pending()) == 0
		}, time.Second, 5*time.Millisecond)

		record, err := store.GetAttendance(context.Background(), "student-1", "sess-1")
		require.NoError(t, err)
		assert.Equal(t, models.AttendanceStatusPending, record.Status)
	})
}

func TestPostConfirmationUnknownID(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/confirmations/confirm-nope", `{"confirmed":true}`)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestPostConfirmationRequiresBody(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, store *storage.Memory) {
		request := queueConfirmation(t, s, store)

		res := test.PerformRequest(t, s, http.MethodPost, "/api/v1/confirmations/"+request.ID, `{}`)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})
}
