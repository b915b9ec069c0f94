package api

import (
	"context"
	"database/sql"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/projektkevin/smart-attendance/internal/auth"
	"github.com/projektkevin/smart-attendance/internal/automation"
	"github.com/projektkevin/smart-attendance/internal/config"
	"github.com/projektkevin/smart-attendance/internal/engine"
	"github.com/projektkevin/smart-attendance/internal/events"
	"github.com/projektkevin/smart-attendance/internal/metrics"
	"github.com/projektkevin/smart-attendance/internal/storage"
)

// Router holds the route groups handlers attach to.
type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
	APIV1      *echo.Group
}

// Server is a central struct keeping all the dependencies. It is initialized
// with wire (see wire.go / wire_gen.go); to add a component, declare it
// here, add a provider in providers.go and list the provider in wire.Build.
// Components labeled `wire:"-"` are initialized after InitNewServer.
type Server struct {
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	Config     config.Server
	DB         *sql.DB
	Clock      time2.Clock
	Hub        *events.Hub
	Metrics    *metrics.Service
	Attendance storage.AttendanceStore
	Sessions   storage.SessionStore
	Broker     *engine.Broker
	Engine     *engine.Engine
	Automation *automation.Service
	JWT        *auth.JWTManager
}

// newServerWithComponents is used by wire to assemble the server.
func newServerWithComponents(
	cfg config.Server,
	db *sql.DB,
	clock time2.Clock,
	hub *events.Hub,
	metricsService *metrics.Service,
	attendance storage.AttendanceStore,
	sessions storage.SessionStore,
	broker *engine.Broker,
	decisionEngine *engine.Engine,
	automationService *automation.Service,
	jwtManager *auth.JWTManager,
) *Server {
	return &Server{
		Config:     cfg,
		DB:         db,
		Clock:      clock,
		Hub:        hub,
		Metrics:    metricsService,
		Attendance: attendance,
		Sessions:   sessions,
		Broker:     broker,
		Engine:     decisionEngine,
		Automation: automationService,
		JWT:        jwtManager,
	}
}

// Ready reports whether the server has been fully initialized.
func (s *Server) Ready() bool {
	return s.Echo != nil && s.Router != nil && s.DB != nil
}

// Start begins listening on the configured address. InitRouter must have
// been called first.
func (s *Server) Start() error {
	if !s.Ready() {
		return echo.ErrServiceUnavailable
	}

	return s.Echo.Start(s.Config.Echo.ListenAddress)
}

// Shutdown drains in-flight requests, stops the event hub and closes the
// database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down server")

	if s.Echo != nil {
		if err := s.Echo.Shutdown(ctx); err != nil {
			return err
		}
	}

	s.Hub.Close()

	if s.DB != nil {
		return s.DB.Close()
	}

	return nil
}
