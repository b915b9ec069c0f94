//go:build wireinject

//go:generate wire

package api

import (
	"github.com/google/wire"

	"github.com/projektkevin/smart-attendance/internal/config"
	"github.com/projektkevin/smart-attendance/internal/engine"
	"github.com/projektkevin/smart-attendance/internal/events"
	"github.com/projektkevin/smart-attendance/internal/metrics"
	"github.com/projektkevin/smart-attendance/internal/storage"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewDB,
	NewClock,
	NewPostgresStore,
	NewEngine,
	NewAutomation,
	NewJWTManager,
	events.NewHub,
	metrics.New,
	engine.NewBroker,
	wire.Bind(new(storage.AttendanceStore), new(*storage.Postgres)),
	wire.Bind(new(storage.SessionStore), new(*storage.Postgres)),
)

// InitNewServer assembles a production server from config.
func InitNewServer(cfg config.Server) (*Server, error) {
	wire.Build(serviceSet)
	return nil, nil
}
