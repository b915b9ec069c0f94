// Package engine implements the attendance decision engine: for every
// recognition or manual event it produces at most one store write and at
// most one notification.
package engine

import (
	"context"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/projektkevin/smart-attendance/internal/config"
	"github.com/projektkevin/smart-attendance/internal/events"
	"github.com/projektkevin/smart-attendance/internal/metrics"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/storage"
)

// DetectionEvent is one recognition or manual marking event entering the
// engine. Confidence is meaningful only for auto-sourced events.
type DetectionEvent struct {
	StudentID  string
	SessionID  string
	Confidence float64
	ObservedAt time.Time
	Source     models.MarkMethod
}

// Engine decides attendance transitions. Writes for the same
// (student, session) key are serialized; distinct keys proceed in parallel.
// The engine never retries a failed event - the next detection is the retry.
type Engine struct {
	cfg        config.Engine
	attendance storage.AttendanceStore
	sessions   storage.SessionStore
	confirmer  Confirmer
	hub        *events.Hub
	clock      time2.Clock
	metrics    *metrics.Service
	locks      *keyedMutex
}

func New(
	cfg config.Engine,
	attendance storage.AttendanceStore,
	sessions storage.SessionStore,
	confirmer Confirmer,
	hub *events.Hub,
	clock time2.Clock,
	metrics *metrics.Service,
) *Engine {
	return &Engine{
		cfg:        cfg,
		attendance: attendance,
		sessions:   sessions,
		confirmer:  confirmer,
		hub:        hub,
		clock:      clock,
		metrics:    metrics,
		locks:      newKeyedMutex(),
	}
}

// HandleDetectionEvent is the single entry point for detection events.
// High-confidence and manual events apply synchronously; events in the
// ambiguous confidence band are parked on the confirmation channel and
// resumed on a separate goroutine, so the caller (a camera frame loop) is
// never blocked by a human.
func (e *Engine) HandleDetectionEvent(ctx context.Context, event DetectionEvent) error {
	if event.Source == "" {
		event.Source = models.MarkMethodAuto
	}
	if event.ObservedAt.IsZero() {
		event.ObservedAt = e.clock.Now()
	}

	if event.Source == models.MarkMethodAuto && event.Confidence < e.cfg.HighConfidenceThreshold {
		e.confirmAsync(event)
		return nil
	}

	return e.apply(ctx, event)
}

// confirmAsync runs the confirmation round-trip on its own goroutine. The
// wait is bounded by the configured timeout; timeout and error both resolve
// negative, and the original event data is applied unchanged on a positive
// answer - confidence is not re-evaluated.
func (e *Engine) confirmAsync(event DetectionEvent) {
	tentative := &models.AttendanceRecord{
		StudentID:  event.StudentID,
		SessionID:  event.SessionID,
		Status:     models.AttendanceStatusPending,
		Confidence: event.Confidence,
		Method:     event.Source,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ConfirmationTimeout)
		defer cancel()

		confirmed, err := e.confirmer.RequestConfirmation(ctx, tentative)
		switch {
		case errors.Is(err, ErrConfirmationTimeout):
			e.metrics.IncConfirmation("timeout")
			e.emitNotMarked(event, events.ReasonConfirmationTimeout, false)
			return
		case err != nil:
			e.metrics.IncConfirmation("error")
			log.Error().Err(err).
				Str("student_id", event.StudentID).
				Str("session_id", event.SessionID).
				Msg("Confirmation channel failed")
			e.emitNotMarked(event, events.ReasonConfirmationError, false)
			return
		case !confirmed:
			e.metrics.IncConfirmation("denied")
			e.emitNotMarked(event, events.ReasonConfirmationDenied, false)
			return
		}

		e.metrics.IncConfirmation("confirmed")
		if err := e.apply(ctx, event); err != nil {
			log.Error().Err(err).
				Str("student_id", event.StudentID).
				Str("session_id", event.SessionID).
				Msg("Failed to apply confirmed detection")
		}
	}()
}

// apply performs the read-decide-write cycle under the per-key lock.
func (e *Engine) apply(ctx context.Context, event DetectionEvent) error {
	unlock := e.locks.Lock(event.StudentID + "/" + event.SessionID)
	defer unlock()

	session, err := e.sessions.GetSession(ctx, event.SessionID)
	if err != nil {
		e.emitNotMarked(event, events.ReasonSessionUnavailable, false)
		return errors.Wrap(err, "failed to load session")
	}

	degraded := false
	record, err := e.attendance.GetAttendance(ctx, event.StudentID, event.SessionID)
	switch {
	case err == storage.ErrNotFound:
		// Data-integrity gap: session creation should have seeded this
		// record. Proceed with the event's own data, flagged as degraded.
		degraded = true
		record = &models.AttendanceRecord{
			StudentID: event.StudentID,
			SessionID: event.SessionID,
			Status:    models.AttendanceStatusPending,
			Method:    models.MarkMethodNone,
		}
		log.Warn().
			Str("student_id", event.StudentID).
			Str("session_id", event.SessionID).
			Msg("Attendance record missing, processing event in degraded mode")
	case err != nil:
		e.emitNotMarked(event, events.ReasonStoreUnavailable, false)
		return errors.Wrap(err, "failed to load attendance record")
	}

	switch record.Status {
	case models.AttendanceStatusPending:
		return e.applyFirstMark(ctx, event, session, record, degraded)
	case models.AttendanceStatusPresent, models.AttendanceStatusLate:
		return e.applyRepeatDetection(ctx, event, record)
	case models.AttendanceStatusAbsent:
		// Terminal once absent; a manual override path outside the engine
		// may still overwrite, this is deliberately the operator's domain.
		e.publish(events.Event{
			Kind:       events.KindNotMarked,
			StudentID:  event.StudentID,
			SessionID:  event.SessionID,
			Status:     record.Status,
			Confidence: event.Confidence,
			Reason:     events.ReasonAlreadyFinalized,
			OccurredAt: event.ObservedAt,
		})
		return nil
	default:
		return errors.Errorf("unknown attendance status %q", record.Status)
	}
}

func (e *Engine) applyFirstMark(
	ctx context.Context,
	event DetectionEvent,
	session *models.Session,
	record *models.AttendanceRecord,
	degraded bool,
) error {
	status := models.AttendanceStatusPresent
	if event.ObservedAt.After(session.LateDeadline()) {
		status = models.AttendanceStatusLate
	}

	if !models.CanTransitionAttendance(record.Status, status) {
		return errors.Errorf("illegal transition from %q to %q", record.Status, status)
	}

	observed := event.ObservedAt
	record.Status = status
	record.Confidence = event.Confidence
	record.Method = event.Source
	record.MarkedAt = &observed
	record.LastSeen = &observed
	record.Note = markNote(event.Source, degraded)

	if err := e.attendance.SaveAttendance(ctx, record); err != nil {
		e.emitNotMarked(event, events.ReasonStoreUnavailable, degraded)
		return errors.Wrap(err, "failed to save attendance record")
	}

	e.publish(events.Event{
		Kind:       events.KindMarked,
		StudentID:  event.StudentID,
		SessionID:  event.SessionID,
		Status:     status,
		Confidence: event.Confidence,
		Degraded:   degraded,
		OccurredAt: event.ObservedAt,
	})

	return nil
}

func (e *Engine) applyRepeatDetection(ctx context.Context, event DetectionEvent, record *models.AttendanceRecord) error {
	if record.LastSeen != nil && event.ObservedAt.Sub(*record.LastSeen) < e.cfg.CooldownWindow {
		// Inside the cooldown window: no write, diagnostic only.
		e.publish(events.Event{
			Kind:       events.KindCooldownSkipped,
			StudentID:  event.StudentID,
			SessionID:  event.SessionID,
			Status:     record.Status,
			Reason:     events.ReasonCooldownActive,
			OccurredAt: event.ObservedAt,
		})
		return nil
	}

	if err := e.attendance.UpdateLastSeen(ctx, event.StudentID, event.SessionID, event.ObservedAt); err != nil {
		e.emitNotMarked(event, events.ReasonStoreUnavailable, false)
		return errors.Wrap(err, "failed to update last seen")
	}

	e.publish(events.Event{
		Kind:       events.KindLastSeenUpdated,
		StudentID:  event.StudentID,
		SessionID:  event.SessionID,
		Status:     record.Status,
		OccurredAt: event.ObservedAt,
	})

	return nil
}

func (e *Engine) emitNotMarked(event DetectionEvent, reason string, degraded bool) {
	e.publish(events.Event{
		Kind:       events.KindNotMarked,
		StudentID:  event.StudentID,
		SessionID:  event.SessionID,
		Confidence: event.Confidence,
		Reason:     reason,
		Degraded:   degraded,
		OccurredAt: event.ObservedAt,
	})
}

func (e *Engine) publish(event events.Event) {
	e.metrics.IncDecision(string(event.Kind))
	e.hub.Publish(event)
}

func markNote(source models.MarkMethod, degraded bool) string {
	note := "auto-marked by recognition"
	if source == models.MarkMethodManual {
		note = "marked manually"
	}
	if degraded {
		note += " (record was missing, recreated from event)"
	}

	return note
}
