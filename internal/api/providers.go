package api

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"

	// Import postgres driver for database/sql package
	_ "github.com/lib/pq"

	"github.com/projektkevin/smart-attendance/internal/auth"
	"github.com/projektkevin/smart-attendance/internal/automation"
	"github.com/projektkevin/smart-attendance/internal/config"
	"github.com/projektkevin/smart-attendance/internal/engine"
	"github.com/projektkevin/smart-attendance/internal/events"
	"github.com/projektkevin/smart-attendance/internal/metrics"
	"github.com/projektkevin/smart-attendance/internal/rules"
	"github.com/projektkevin/smart-attendance/internal/storage"
)

// PROVIDERS - providers that for various reasons (sub-config unwrapping,
// interface binding) cannot live in their corresponding packages.

func NewDB(cfg config.Server) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func NewClock(t ...*testing.T) time2.Clock {
	var clock time2.Clock

	useMock := len(t) > 0 && t[0] != nil

	if useMock {
		clock = time2.NewMockClock(time.Now())
	} else {
		clock = time2.DefaultClock
	}

	return clock
}

func NewPostgresStore(db *sql.DB) *storage.Postgres {
	return storage.NewPostgres(db)
}

func NewEngine(
	cfg config.Server,
	attendance storage.AttendanceStore,
	sessions storage.SessionStore,
	broker *engine.Broker,
	hub *events.Hub,
	clock time2.Clock,
	metricsService *metrics.Service,
) *engine.Engine {
	return engine.New(cfg.Engine, attendance, sessions, broker, hub, clock, metricsService)
}

func NewAutomation(
	cfg config.Server,
	sessions storage.SessionStore,
	attendance storage.AttendanceStore,
	hub *events.Hub,
	clock time2.Clock,
	metricsService *metrics.Service,
) *automation.Service {
	chain := rules.DefaultChain(cfg.Automation.EarlyOpenGrace)
	return automation.NewService(cfg.Automation, sessions, attendance, chain, hub, clock, metricsService)
}

// NewJWTManager returns nil when auth is disabled; the middleware treats a
// nil manager as no enforcement.
func NewJWTManager(cfg config.Server) *auth.JWTManager {
	if !cfg.Auth.Enabled {
		return nil
	}

	return auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenDuration)
}
