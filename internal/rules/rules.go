// Package rules implements the gating chain that decides whether a session
// may auto-open or auto-close. Rules are pure predicates over a loaded
// snapshot; evaluation has no side effects and the chain's result equals the
// logical AND of its rules, short-circuiting on the first rejection.
package rules

import (
	"time"

	"github.com/projektkevin/smart-attendance/internal/models"
)

// Evaluation is the snapshot a chain is evaluated against. Sessions holds
// all sessions as loaded at the start of the pass; conflict checks use it
// instead of a cached "currently open" singleton.
type Evaluation struct {
	Now      time.Time
	Session  *models.Session
	Sessions []*models.Session
}

// Rule is a single gating predicate.
type Rule interface {
	Name() string
	CanAutoStart(eval *Evaluation) bool
	CanAutoStop(eval *Evaluation) bool
}

// Chain evaluates rules in order, outermost first. Cheap rejections sit at
// the front so expensive checks only run when everything before them passed.
type Chain []Rule

// DefaultChain returns the production rule order.
func DefaultChain(earlyOpenGrace time.Duration) Chain {
	return Chain{
		SessionEndedRule{},
		StatusValidationRule{},
		ConflictPreventionRule{},
		TimeRule{EarlyOpenGrace: earlyOpenGrace},
	}
}

// CanAutoStart reports whether every rule permits opening, along with the
// name of the first rejecting rule for diagnostics.
func (c Chain) CanAutoStart(eval *Evaluation) (bool, string) {
	for _, rule := range c {
		if !rule.CanAutoStart(eval) {
			return false, rule.Name()
		}
	}

	return true, ""
}

// CanAutoStop reports whether every rule permits closing, along with the
// name of the first rejecting rule for diagnostics.
func (c Chain) CanAutoStop(eval *Evaluation) (bool, string) {
	for _, rule := range c {
		if !rule.CanAutoStop(eval) {
			return false, rule.Name()
		}
	}

	return true, ""
}

// SessionEndedRule rejects opening a session whose scheduled end has already
// passed, regardless of any other rule.
type SessionEndedRule struct{}

func (SessionEndedRule) Name() string { return "session_ended" }

func (SessionEndedRule) CanAutoStart(eval *Evaluation) bool {
	return eval.Now.Before(eval.Session.EndsAt)
}

func (SessionEndedRule) CanAutoStop(_ *Evaluation) bool { return true }

// StatusValidationRule gates on the session's lifecycle state: only pending
// sessions may open, and closed sessions never close again.
type StatusValidationRule struct{}

func (StatusValidationRule) Name() string { return "status_validation" }

func (StatusValidationRule) CanAutoStart(eval *Evaluation) bool {
	return eval.Session.Status == models.SessionStatusPending
}

func (StatusValidationRule) CanAutoStop(eval *Evaluation) bool {
	return eval.Session.Status != models.SessionStatusClosed
}

// ConflictPreventionRule enforces the system-wide invariants: no other
// session may carry the auto-start flag and no session may be open when a
// session wants to open. Closing has no conflict constraint.
type ConflictPreventionRule struct{}

func (ConflictPreventionRule) Name() string { return "conflict_prevention" }

func (ConflictPreventionRule) CanAutoStart(eval *Evaluation) bool {
	for _, other := range eval.Sessions {
		if other.ID == eval.Session.ID {
			continue
		}
		if other.AutoStart {
			return false
		}
	}

	for _, other := range eval.Sessions {
		if other.Status == models.SessionStatusOpen {
			return false
		}
	}

	return true
}

func (ConflictPreventionRule) CanAutoStop(_ *Evaluation) bool { return true }

// TimeRule is the innermost rule: opening requires now to be within the
// scheduled window (allowing the configured early-open grace before the
// start), closing requires the end time to have passed.
type TimeRule struct {
	EarlyOpenGrace time.Duration
}

func (TimeRule) Name() string { return "time_window" }

func (r TimeRule) CanAutoStart(eval *Evaluation) bool {
	earliest := eval.Session.StartsAt.Add(-r.EarlyOpenGrace)
	return !eval.Now.Before(earliest)
}

func (r TimeRule) CanAutoStop(eval *Evaluation) bool {
	return !eval.Now.Before(eval.Session.EndsAt)
}
