package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projektkevin/smart-attendance/internal/engine"
	"github.com/projektkevin/smart-attendance/internal/models"
)

func tentativeRecord(studentID string) *models.AttendanceRecord {
	return &models.AttendanceRecord{
		StudentID:  studentID,
		SessionID:  "sess-1",
		Status:     models.AttendanceStatusPending,
		Confidence: 0.6,
		Method:     models.MarkMethodAuto,
	}
}

func TestBrokerResolveConfirmed(t *testing.T) {
	broker := engine.NewBroker()

	result := make(chan bool, 1)
	go func() {
		confirmed, err := broker.RequestConfirmation(context.Background(), tentativeRecord("student-1"))
		assert.NoError(t, err)
		result <- confirmed
	}()

	var pending []engine.PendingConfirmation
	require.Eventually(t, func() bool {
		pending = broker.Pending()
		return len(pending) == 1
	}, time.Second, 2*time.Millisecond)

	assert.Equal(t, "student-1", pending[0].Record.StudentID)
	require.NoError(t, broker.Resolve(pending[0].ID, true))

	select {
	case confirmed := <-result:
		assert.True(t, confirmed)
	case <-time.After(time.Second):
		t.Fatal("request did not resolve")
	}

	assert.Empty(t, broker.Pending(), "resolved request must leave the pending list")
}

func TestBrokerResolveDenied(t *testing.T) {
	broker := engine.NewBroker()

	result := make(chan bool, 1)
	go func() {
		confirmed, err := broker.RequestConfirmation(context.Background(), tentativeRecord("student-1"))
		assert.NoError(t, err)
		result <- confirmed
	}()

	var pending []engine.PendingConfirmation
	require.Eventually(t, func() bool {
		pending = broker.Pending()
		return len(pending) == 1
	}, time.Second, 2*time.Millisecond)

	require.NoError(t, broker.Resolve(pending[0].ID, false))
	assert.False(t, <-result)
}

func TestBrokerDeadlineMapsToTimeout(t *testing.T) {
	broker := engine.NewBroker()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	confirmed, err := broker.RequestConfirmation(ctx, tentativeRecord("student-1"))
	assert.False(t, confirmed)
	assert.ErrorIs(t, err, engine.ErrConfirmationTimeout)
	assert.Empty(t, broker.Pending())
}

func TestBrokerResolveUnknownID(t *testing.T) {
	broker := engine.NewBroker()

	err := broker.Resolve("confirm-does-not-exist", true)
	assert.ErrorIs(t, err, engine.ErrConfirmationNotFound)
}

func TestBrokerPendingOldestFirst(t *testing.T) {
	broker := engine.NewBroker()

	for _, studentID := range []string{"student-1", "student-2", "student-3"} {
		id := studentID
		go func() {
			_, _ = broker.RequestConfirmation(context.Background(), tentativeRecord(id))
		}()
		// Requests stamp wall-clock time; space them out so the order is
		// deterministic.
		require.Eventually(t, func() bool {
			for _, pending := range broker.Pending() {
				if pending.Record.StudentID == id {
					return true
				}
			}
			return false
		}, time.Second, 2*time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}

	pending := broker.Pending()
	require.Len(t, pending, 3)
	assert.Equal(t, "student-1", pending[0].Record.StudentID)
	assert.Equal(t, "student-3", pending[2].Record.StudentID)

	for _, p := range pending {
		require.NoError(t, broker.Resolve(p.ID, false))
	}
}
