package models

import "time"

// AttendanceStatus is the lifecycle state of a single attendance record.
type AttendanceStatus string

const (
	AttendanceStatusPending AttendanceStatus = "pending"
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// MarkMethod records how a status-changing write was produced.
type MarkMethod string

const (
	MarkMethodNone   MarkMethod = "none"
	MarkMethodManual MarkMethod = "manual"
	MarkMethodAuto   MarkMethod = "auto"
)

// AttendanceRecord is one row per (student, session) pair. Records are seeded
// in pending/none state when the owning session is created; the engine never
// creates them ad hoc.
type AttendanceRecord struct {
	StudentID  string           `json:"student_id"`
	SessionID  string           `json:"session_id"`
	Status     AttendanceStatus `json:"status"`
	Confidence float64          `json:"confidence"`
	Method     MarkMethod       `json:"method"`
	MarkedAt   *time.Time       `json:"marked_at,omitempty"`
	LastSeen   *time.Time       `json:"last_seen,omitempty"`
	Note       string           `json:"note,omitempty"`
}

// Marked reports whether the record already carries a first-mark status.
func (r *AttendanceRecord) Marked() bool {
	return r.Status == AttendanceStatusPresent || r.Status == AttendanceStatusLate
}

// CanTransitionAttendance reports whether the engine may move a record from
// current to next. Present, late and absent are terminal for automatic
// transitions; present/late records only ever advance their last-seen
// timestamp afterwards.
func CanTransitionAttendance(current, next AttendanceStatus) bool {
	switch current {
	case AttendanceStatusPending:
		return next == AttendanceStatusPresent ||
			next == AttendanceStatusLate ||
			next == AttendanceStatusAbsent
	default:
		return false
	}
}
