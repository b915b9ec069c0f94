package test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"

	"github.com/projektkevin/smart-attendance/internal/events"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/storage"
)

// NewMockClockAt returns a mock clock frozen at the given instant.
func NewMockClockAt(t *testing.T, at time.Time) *time2.MockClock {
	t.Helper()

	return time2.NewMockClock(at)
}

// SeedSession enrolls the students on the session's course and creates the
// session, seeding one pending record per student.
func SeedSession(t *testing.T, store *storage.Memory, session *models.Session, studentIDs ...string) {
	t.Helper()

	store.Enroll(session.CourseID, studentIDs...)
	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
}

// Recorder collects every event published on a hub for later assertions.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event

	hub   *events.Hub
	subID string
}

// NewRecorder subscribes to the hub and drains events on a background
// goroutine until the test ends.
func NewRecorder(t *testing.T, hub *events.Hub) *Recorder {
	t.Helper()

	subID, ch := hub.Subscribe(256)
	r := &Recorder{hub: hub, subID: subID}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range ch {
			r.mu.Lock()
			r.events = append(r.events, event)
			r.mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		hub.Unsubscribe(subID)
		<-done
	})

	return r
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// CountKind returns how many recorded events have the given kind.
func (r *Recorder) CountKind(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, event := range r.events {
		if event.Kind == kind {
			count++
		}
	}
	return count
}

// WaitForKind blocks until at least n events of the given kind were
// recorded. The drain goroutine lags the publisher, so tests must wait
// before asserting on counts.
func (r *Recorder) WaitForKind(t *testing.T, kind events.Kind, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.CountKind(kind) >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events of kind %q, recorded %d", n, kind, r.CountKind(kind))
}

// LastOfKind returns the most recent event of the given kind.
func (r *Recorder) LastOfKind(kind events.Kind) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return events.Event{}, false
}
