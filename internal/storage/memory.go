package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/projektkevin/smart-attendance/internal/models"
)

// Memory is an in-memory implementation of AttendanceStore and SessionStore
// used by tests and by the demo seed command. It is safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	attendance  map[string]*models.AttendanceRecord // keyed by studentID+"/"+sessionID
	sessions    map[string]*models.Session
	enrollments map[string][]string // courseID -> studentIDs

	// FailNext makes the next store call fail with the given error, for
	// exercising degraded paths in tests.
	failMu   sync.Mutex
	failNext error
}

func NewMemory() *Memory {
	return &Memory{
		attendance:  make(map[string]*models.AttendanceRecord),
		sessions:    make(map[string]*models.Session),
		enrollments: make(map[string][]string),
	}
}

var _ AttendanceStore = (*Memory)(nil)
var _ SessionStore = (*Memory)(nil)

func attendanceKey(studentID, sessionID string) string {
	return studentID + "/" + sessionID
}

// FailNextCall arranges for the next store operation to return err.
func (m *Memory) FailNextCall(err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failNext = err
}

func (m *Memory) takeFailure() error {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	err := m.failNext
	m.failNext = nil
	return err
}

// Enroll registers a student on a course for roster seeding.
func (m *Memory) Enroll(courseID string, studentIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[courseID] = append(m.enrollments[courseID], studentIDs...)
}

func (m *Memory) GetAttendance(_ context.Context, studentID, sessionID string) (*models.AttendanceRecord, error) {
	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.attendance[attendanceKey(studentID, sessionID)]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *record
	return &copied, nil
}

func (m *Memory) SaveAttendance(_ context.Context, record *models.AttendanceRecord) error {
	if err := m.takeFailure(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *record
	m.attendance[attendanceKey(record.StudentID, record.SessionID)] = &copied
	return nil
}

func (m *Memory) UpdateLastSeen(_ context.Context, studentID, sessionID string, seenAt time.Time) error {
	if err := m.takeFailure(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.attendance[attendanceKey(studentID, sessionID)]
	if !ok {
		return ErrNotFound
	}

	seen := seenAt
	record.LastSeen = &seen
	return nil
}

func (m *Memory) FindPendingBySession(_ context.Context, sessionID string) ([]*models.AttendanceRecord, error) {
	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*models.AttendanceRecord
	for _, record := range m.attendance {
		if record.SessionID == sessionID && record.Status == models.AttendanceStatusPending {
			copied := *record
			records = append(records, &copied)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].StudentID < records[j].StudentID })
	return records, nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*models.Session, error) {
	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *session
	return &copied, nil
}

func (m *Memory) ListSessions(_ context.Context) ([]*models.Session, error) {
	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*models.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		copied := *session
		sessions = append(sessions, &copied)
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartsAt.Before(sessions[j].StartsAt) })
	return sessions, nil
}

func (m *Memory) UpdateSessionStatus(_ context.Context, id string, status models.SessionStatus) error {
	if err := m.takeFailure(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}

	session.Status = status
	return nil
}

func (m *Memory) OpenSessionExists(_ context.Context) (bool, error) {
	if err := m.takeFailure(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		if session.Status == models.SessionStatusOpen {
			return true, nil
		}
	}

	return false, nil
}

func (m *Memory) CreateSession(_ context.Context, session *models.Session) error {
	if err := m.takeFailure(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.sessions[session.ID] = &copied

	for _, studentID := range m.enrollments[session.CourseID] {
		m.attendance[attendanceKey(studentID, session.ID)] = &models.AttendanceRecord{
			StudentID: studentID,
			SessionID: session.ID,
			Status:    models.AttendanceStatusPending,
			Method:    models.MarkMethodNone,
		}
	}

	return nil
}
