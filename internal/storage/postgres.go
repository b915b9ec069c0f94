package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/projektkevin/smart-attendance/internal/models"
)

// Postgres implements AttendanceStore and SessionStore on database/sql with
// the lib/pq driver.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ AttendanceStore = (*Postgres)(nil)
var _ SessionStore = (*Postgres)(nil)

func (p *Postgres) GetAttendance(ctx context.Context, studentID, sessionID string) (*models.AttendanceRecord, error) {
	record := &models.AttendanceRecord{}
	err := p.db.QueryRowContext(ctx, `
		SELECT student_id, session_id, status, confidence, method, marked_at, last_seen, note
		FROM attendance_records
		WHERE student_id = $1 AND session_id = $2`,
		studentID, sessionID,
	).Scan(&record.StudentID, &record.SessionID, &record.Status, &record.Confidence,
		&record.Method, &record.MarkedAt, &record.LastSeen, &record.Note)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load attendance record")
	}

	return record, nil
}

func (p *Postgres) SaveAttendance(ctx context.Context, record *models.AttendanceRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO attendance_records (student_id, session_id, status, confidence, method, marked_at, last_seen, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, session_id) DO UPDATE SET
			status = EXCLUDED.status,
			confidence = EXCLUDED.confidence,
			method = EXCLUDED.method,
			marked_at = EXCLUDED.marked_at,
			last_seen = EXCLUDED.last_seen,
			note = EXCLUDED.note`,
		record.StudentID, record.SessionID, record.Status, record.Confidence,
		record.Method, record.MarkedAt, record.LastSeen, record.Note)
	if err != nil {
		return errors.Wrap(err, "failed to save attendance record")
	}

	return nil
}

func (p *Postgres) UpdateLastSeen(ctx context.Context, studentID, sessionID string, seenAt time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE attendance_records SET last_seen = $3
		WHERE student_id = $1 AND session_id = $2`,
		studentID, sessionID, seenAt)
	if err != nil {
		return errors.Wrap(err, "failed to update last seen")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Postgres) FindPendingBySession(ctx context.Context, sessionID string) ([]*models.AttendanceRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT student_id, session_id, status, confidence, method, marked_at, last_seen, note
		FROM attendance_records
		WHERE session_id = $1 AND status = $2
		ORDER BY student_id`,
		sessionID, models.AttendanceStatusPending)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query pending records")
	}
	defer rows.Close()

	var records []*models.AttendanceRecord
	for rows.Next() {
		record := &models.AttendanceRecord{}
		if err := rows.Scan(&record.StudentID, &record.SessionID, &record.Status, &record.Confidence,
			&record.Method, &record.MarkedAt, &record.LastSeen, &record.Note); err != nil {
			return nil, errors.Wrap(err, "failed to scan pending record")
		}
		records = append(records, record)
	}

	return records, errors.Wrap(rows.Err(), "failed to iterate pending records")
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, course_id, starts_at, ends_at, location, late_threshold_minutes, status, auto_start, auto_stop
		FROM sessions
		WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.CourseID, &session.StartsAt, &session.EndsAt, &session.Location,
		&session.LateThresholdMinutes, &session.Status, &session.AutoStart, &session.AutoStop)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}

	return session, nil
}

func (p *Postgres) ListSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, course_id, starts_at, ends_at, location, late_threshold_minutes, status, auto_start, auto_stop
		FROM sessions
		ORDER BY starts_at`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sessions")
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session := &models.Session{}
		if err := rows.Scan(&session.ID, &session.CourseID, &session.StartsAt, &session.EndsAt, &session.Location,
			&session.LateThresholdMinutes, &session.Status, &session.AutoStart, &session.AutoStop); err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		sessions = append(sessions, session)
	}

	return sessions, errors.Wrap(rows.Err(), "failed to iterate sessions")
}

func (p *Postgres) UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error {
	res, err := p.db.ExecContext(ctx, `UPDATE sessions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return errors.Wrap(err, "failed to update session status")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Postgres) OpenSessionExists(ctx context.Context) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE status = $1)`,
		models.SessionStatusOpen,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to query open sessions")
	}

	return exists, nil
}

// CreateSession inserts the session and seeds the roster in one transaction
// so that every enrolled student has exactly one pending record.
func (p *Postgres) CreateSession(ctx context.Context, session *models.Session) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, course_id, starts_at, ends_at, location, late_threshold_minutes, status, auto_start, auto_stop)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID, session.CourseID, session.StartsAt, session.EndsAt, session.Location,
		session.LateThresholdMinutes, session.Status, session.AutoStart, session.AutoStop)
	if err != nil {
		return errors.Wrap(err, "failed to insert session")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_records (student_id, session_id, status, confidence, method, note)
		SELECT e.student_id, $1, $2, 0, $3, ''
		FROM enrollments e
		WHERE e.course_id = $4`,
		session.ID, models.AttendanceStatusPending, models.MarkMethodNone, session.CourseID)
	if err != nil {
		return errors.Wrap(err, "failed to seed attendance records")
	}

	return errors.Wrap(tx.Commit(), "failed to commit session creation")
}
