package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projektkevin/smart-attendance/internal/events"
)

func receive(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()

	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := events.NewHub()
	defer hub.Close()

	_, chA := hub.Subscribe(8)
	_, chB := hub.Subscribe(8)

	hub.Publish(events.Event{Kind: events.KindMarked, StudentID: "student-1"})

	eventA := receive(t, chA)
	eventB := receive(t, chB)
	assert.Equal(t, events.KindMarked, eventA.Kind)
	assert.Equal(t, eventA.ID, eventB.ID, "both subscribers see the same event")
	assert.NotEmpty(t, eventA.ID, "publish assigns an id")
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := events.NewHub()
	defer hub.Close()

	id, ch := hub.Subscribe(8)
	hub.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after unsubscribe must not panic.
	hub.Publish(events.Event{Kind: events.KindMarked})
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := events.NewHub()
	defer hub.Close()

	_, slow := hub.Subscribe(1)
	_, fast := hub.Subscribe(8)

	for i := 0; i < 3; i++ {
		hub.Publish(events.Event{Kind: events.KindLastSeenUpdated})
	}

	// The slow subscriber keeps only what fits its buffer; the publisher and
	// the healthy subscriber are unaffected.
	assert.Len(t, slow, 1)
	assert.Len(t, fast, 3)
}

func TestHubCloseTerminatesSubscribers(t *testing.T) {
	hub := events.NewHub()

	_, ch := hub.Subscribe(8)
	hub.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// Idempotent close and post-close operations are no-ops.
	hub.Close()
	hub.Publish(events.Event{Kind: events.KindMarked})

	_, late := hub.Subscribe(8)
	_, ok = <-late
	assert.False(t, ok, "subscribing after close yields a closed channel")
}
