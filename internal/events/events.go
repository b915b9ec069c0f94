package events

import (
	"time"

	"github.com/projektkevin/smart-attendance/internal/models"
)

// Kind identifies the outcome a notification describes. Every kind maps to a
// distinct operator-facing status so "marked", "seen again", "skipped by
// cooldown" and "could not be marked" stay distinguishable.
type Kind string

const (
	KindMarked               Kind = "marked"
	KindLastSeenUpdated      Kind = "last_seen_updated"
	KindCooldownSkipped      Kind = "cooldown_skipped"
	KindNotMarked            Kind = "not_marked"
	KindSessionAutoOpened    Kind = "session_auto_opened"
	KindSessionAutoClosed    Kind = "session_auto_closed"
	KindBatchAbsentFinalized Kind = "batch_absent_finalized"
)

// Reasons attached to KindNotMarked and KindCooldownSkipped events.
const (
	ReasonStoreUnavailable    = "store_unavailable"
	ReasonSessionUnavailable  = "session_unavailable"
	ReasonConfirmationDenied  = "confirmation_denied"
	ReasonConfirmationTimeout = "confirmation_timeout"
	ReasonConfirmationError   = "confirmation_error"
	ReasonAlreadyFinalized    = "already_finalized"
	ReasonCooldownActive      = "cooldown_active"
)

// Event is the payload delivered to subscribers. It carries enough identity
// and resulting state for a listener to refresh a view without re-querying.
type Event struct {
	ID            string                  `json:"id"`
	Kind          Kind                    `json:"kind"`
	StudentID     string                  `json:"student_id,omitempty"`
	SessionID     string                  `json:"session_id,omitempty"`
	Status        models.AttendanceStatus `json:"status,omitempty"`
	SessionStatus models.SessionStatus    `json:"session_status,omitempty"`
	Confidence    float64                 `json:"confidence,omitempty"`
	Reason        string                  `json:"reason,omitempty"`
	Count         int                     `json:"count,omitempty"`
	Degraded      bool                    `json:"degraded,omitempty"`
	OccurredAt    time.Time               `json:"occurred_at"`
}
