package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/projektkevin/smart-attendance/internal/models"
)

// ErrConfirmationTimeout is returned when no resolution arrives within the
// caller's deadline. The engine treats it as a negative resolution.
var ErrConfirmationTimeout = errors.New("confirmation timed out")

// ErrConfirmationNotFound is returned when resolving an unknown request id.
var ErrConfirmationNotFound = errors.New("confirmation request not found")

// Confirmer requests human confirmation of a low-confidence match and
// resolves asynchronously. Implementations must honour ctx cancellation.
type Confirmer interface {
	RequestConfirmation(ctx context.Context, record *models.AttendanceRecord) (bool, error)
}

// PendingConfirmation describes one request awaiting a yes/no answer.
type PendingConfirmation struct {
	ID          string                   `json:"id"`
	Record      *models.AttendanceRecord `json:"record"`
	RequestedAt time.Time                `json:"requested_at"`
}

// Broker implements Confirmer by parking each request until an operator
// resolves it through Resolve (driven by the confirmation API) or the
// caller's deadline expires.
type Broker struct {
	mu      sync.Mutex
	pending map[string]*brokerEntry
}

type brokerEntry struct {
	PendingConfirmation
	resolved chan bool
}

func NewBroker() *Broker {
	return &Broker{
		pending: make(map[string]*brokerEntry),
	}
}

var _ Confirmer = (*Broker)(nil)

// RequestConfirmation registers the tentative record and blocks until the
// request is resolved or ctx expires. Expiry maps to a negative result with
// ErrConfirmationTimeout.
func (b *Broker) RequestConfirmation(ctx context.Context, record *models.AttendanceRecord) (bool, error) {
	entry := &brokerEntry{
		PendingConfirmation: PendingConfirmation{
			ID:          "confirm-" + uuid.New().String(),
			Record:      record,
			RequestedAt: time.Now(),
		},
		resolved: make(chan bool, 1),
	}

	b.mu.Lock()
	b.pending[entry.ID] = entry
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, entry.ID)
		b.mu.Unlock()
	}()

	select {
	case confirmed := <-entry.resolved:
		return confirmed, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, ErrConfirmationTimeout
		}
		return false, errors.Wrap(ctx.Err(), "confirmation aborted")
	}
}

// Pending lists requests currently awaiting resolution, oldest first.
func (b *Broker) Pending() []PendingConfirmation {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]PendingConfirmation, 0, len(b.pending))
	for _, entry := range b.pending {
		out = append(out, entry.PendingConfirmation)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out
}

// Resolve answers a pending request. The first resolution wins; late or
// unknown ids return ErrConfirmationNotFound.
func (b *Broker) Resolve(id string, confirmed bool) error {
	b.mu.Lock()
	entry, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !ok {
		return ErrConfirmationNotFound
	}

	entry.resolved <- confirmed
	return nil
}
