package storage

import (
	"context"
	"errors"
	"time"

	"github.com/projektkevin/smart-attendance/internal/models"
)

// ErrNotFound is returned by point lookups when no row exists. Store
// implementations return it unwrapped so callers can compare directly.
var ErrNotFound = errors.New("record not found")

// AttendanceStore is the durable keyed storage for attendance records. All
// mutation goes through single-record read-modify-write operations; writers
// never blind-overwrite fields they did not intend to change.
type AttendanceStore interface {
	// GetAttendance loads the record for (student, session) or ErrNotFound.
	GetAttendance(ctx context.Context, studentID, sessionID string) (*models.AttendanceRecord, error)

	// SaveAttendance overwrites status, confidence, method, timestamps and
	// note of an existing record, or inserts it when absent.
	SaveAttendance(ctx context.Context, record *models.AttendanceRecord) error

	// UpdateLastSeen advances only the last-seen timestamp.
	UpdateLastSeen(ctx context.Context, studentID, sessionID string, seenAt time.Time) error

	// FindPendingBySession returns all records of the session still pending.
	FindPendingBySession(ctx context.Context, sessionID string) ([]*models.AttendanceRecord, error)
}

// SessionStore is the durable storage of session definitions and lifecycle
// flags.
type SessionStore interface {
	// GetSession loads a session by id or ErrNotFound.
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// ListSessions returns all sessions.
	ListSessions(ctx context.Context) ([]*models.Session, error)

	// UpdateSessionStatus persists a status transition.
	UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error

	// OpenSessionExists reports whether any session is currently open,
	// derived from storage rather than cached.
	OpenSessionExists(ctx context.Context) (bool, error)

	// CreateSession inserts a pending session and seeds one pending/none
	// attendance record per student enrolled in the session's course.
	CreateSession(ctx context.Context, session *models.Session) error
}
