// Package automation drives the periodic session lifecycle passes: the
// automation loop that opens and closes flagged sessions through the rule
// chain, and the sweep that finalizes stale pending records of closed
// sessions to absent.
package automation

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
	"github.com/projektkevin/smart-attendance/internal/rules"
	"github.com/projektkevin/smart-attendance/internal/storage"
)

type Service struct {
	cfg        config.Automation
	sessions   storage.SessionStore
	attendance storage.AttendanceStore
	chain      rules.Chain
	hub        *events.Hub
	clock      time2.Clock
	metrics    *metrics.Service
}

func NewService(
	cfg config.Automation,
	sessions storage.SessionStore,
	attendance storage.AttendanceStore,
	chain rules.Chain,
	hub *events.Hub,
	clock time2.Clock,
	metrics *metrics.Service,
) *Service {
	return &Service{
		cfg:        cfg,
		sessions:   sessions,
		attendance: attendance,
		chain:      chain,
		hub:        hub,
		clock:      clock,
		metrics:    metrics,
	}
}

// RunSessionAutomationPass evaluates the rule chain against every session
// and applies the permitted transitions. Each session is independent; one
// failure never aborts the pass.
func (s *Service) RunSessionAutomationPass(ctx context.Context) error {
	all, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list sessions")
	}

	now := s.clock.Now()
	for _, session := range all {
		itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout())
		s.evaluateSession(itemCtx, session, all, now)
		cancel()
	}

	return nil
}

func (s *Service) evaluateSession(ctx context.Context, session *models.Session, all []*models.Session, now time.Time) {
	eval := &rules.Evaluation{Now: now, Session: session, Sessions: all}

	if session.AutoStart {
		if ok, rejectedBy := s.chain.CanAutoStart(eval); ok {
			s.transition(ctx, session, models.SessionStatusOpen, events.KindSessionAutoOpened)
		} else {
			log.Debug().
				Str("session_id", session.ID).
				Str("rejected_by", rejectedBy).
				Msg("Auto start rejected by rule chain")
		}
	}

	if session.AutoStop {
		if ok, rejectedBy := s.chain.CanAutoStop(eval); ok {
			s.transition(ctx, session, models.SessionStatusClosed, events.KindSessionAutoClosed)
		} else {
			log.Debug().
				Str("session_id", session.ID).
				Str("rejected_by", rejectedBy).
				Msg("Auto stop rejected by rule chain")
		}
	}
}

// transition persists the status change and mutates the in-pass snapshot so
// later conflict checks within the same pass see the new state.
func (s *Service) transition(ctx context.Context, session *models.Session, next models.SessionStatus, kind events.Kind) {
	if !models.CanTransitionSession(session.Status, next) {
		return
	}

	if err := s.sessions.UpdateSessionStatus(ctx, session.ID, next); err != nil {
		log.Error().Err(err).
			Str("session_id", session.ID).
			Str("next_status", string(next)).
			Msg("Failed to persist session transition")
		return
	}

	session.Status = next
	s.metrics.IncTransition(string(kind))
	s.hub.Publish(events.Event{
		Kind:          kind,
		SessionID:     session.ID,
		SessionStatus: next,
		OccurredAt:    s.clock.Now(),
	})
}

// RunAbsentSweepPass finalizes all still-pending records of closed sessions
// to absent. One batch and at most one notification per session; sessions
// with nothing pending emit nothing.
func (s *Service) RunAbsentSweepPass(ctx context.Context) error {
	all, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list sessions")
	}

	for _, session := range all {
		if session.Status != models.SessionStatusClosed {
			continue
		}

		if err := s.sweepSession(ctx, session); err != nil {
			log.Error().Err(err).
				Str("session_id", session.ID).
				Msg("Failed to sweep session")
		}
	}

	return nil
}

func (s *Service) sweepSession(ctx context.Context, session *models.Session) error {
	pending, err := s.attendance.FindPendingBySession(ctx, session.ID)
	if err != nil {
		return errors.Wrap(err, "failed to find pending records")
	}
	if len(pending) == 0 {
		return nil
	}

	now := s.clock.Now()
	finalized := 0
	for _, record := range pending {
		if !models.CanTransitionAttendance(record.Status, models.AttendanceStatusAbsent) {
			continue
		}

		record.Status = models.AttendanceStatusAbsent
		record.Method = models.MarkMethodAuto
		record.MarkedAt = &now
		record.Note = "auto-marked absent after session close"

		itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout())
		err := s.attendance.SaveAttendance(itemCtx, record)
		cancel()
		if err != nil {
			log.Error().Err(err).
				Str("student_id", record.StudentID).
				Str("session_id", session.ID).
				Msg("Failed to finalize record as absent")
			continue
		}

		finalized++
	}

	if finalized == 0 {
		return nil
	}

	s.metrics.ObserveSweepBatch(finalized)
	s.hub.Publish(events.Event{
		Kind:       events.KindBatchAbsentFinalized,
		SessionID:  session.ID,
		Status:     models.AttendanceStatusAbsent,
		Count:      finalized,
		OccurredAt: now,
	})

	return nil
}

// Start runs both periodic drivers until ctx is cancelled. Pass errors are
// logged, never fatal, so the next tick always runs.
func (s *Service) Start(ctx context.Context) {
	go s.runLoop(ctx, "session_automation", s.cfg.PassInterval, s.RunSessionAutomationPass)
	go s.runLoop(ctx, "absent_sweep", s.cfg.SweepInterval, s.RunAbsentSweepPass)
}

func (s *Service) runLoop(ctx context.Context, name string, interval time.Duration, pass func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Str("loop", name).Dur("interval", interval).Msg("Automation loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("loop", name).Msg("Automation loop stopped")
			return
		case <-ticker.C:
			if err := pass(ctx); err != nil {
				log.Error().Err(err).Str("loop", name).Msg("Automation pass failed")
			}
		}
	}
}

func (s *Service) itemTimeout() time.Duration {
	if s.cfg.ItemTimeout <= 0 {
		return 5 * time.Second
	}

	return s.cfg.ItemTimeout
}
