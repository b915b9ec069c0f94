package models

import "time"

// SessionStatus is the lifecycle state of a scheduled class meeting.
type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusOpen    SessionStatus = "open"
	SessionStatusClosed  SessionStatus = "closed"
)

// Session is one scheduled class meeting. At most one session may be open at
// any time system-wide; at most one may carry each automation flag.
type Session struct {
	ID                   string        `json:"id"`
	CourseID             string        `json:"course_id"`
	StartsAt             time.Time     `json:"starts_at"`
	EndsAt               time.Time     `json:"ends_at"`
	Location             string        `json:"location,omitempty"`
	LateThresholdMinutes int           `json:"late_threshold_minutes"`
	Status               SessionStatus `json:"status"`
	AutoStart            bool          `json:"auto_start"`
	AutoStop             bool          `json:"auto_stop"`
}

// LateDeadline is the last instant at which a first detection still counts as
// present rather than late.
func (s *Session) LateDeadline() time.Time {
	return s.StartsAt.Add(time.Duration(s.LateThresholdMinutes) * time.Minute)
}

// CanTransitionSession reports whether a session may move from current to
// next. Closed is terminal.
func CanTransitionSession(current, next SessionStatus) bool {
	switch current {
	case SessionStatusPending:
		return next == SessionStatusOpen || next == SessionStatusClosed
	case SessionStatusOpen:
		return next == SessionStatusClosed
	default:
		return false
	}
}
