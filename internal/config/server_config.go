package config

import (
	"fmt"
	"time"

	"github.com/projektkevin/smart-attendance/internal/util"
)

// Database holds the Postgres connection settings for the attendance and
// session stores.
type Database struct {
	Host     string
	Port     int
	Username string
	Password string `json:"-"` // sensitive
	Database string
	SSLMode  string
}

// ConnectionString returns a keyword/value DSN for lib/pq.
func (d Database) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode)
}

// Redis configures the optional event publisher and open-session cache.
type Redis struct {
	Enabled       bool
	URL           string
	EventsChannel string
	KeyPrefix     string
}

// EchoServer configures the HTTP surface.
type EchoServer struct {
	ListenAddress             string
	EnableRecoverMiddleware   bool
	EnableRequestIDMiddleware bool
}

// Auth configures device (camera agent) bearer tokens.
type Auth struct {
	Enabled       bool
	Secret        string `json:"-"` // sensitive
	Issuer        string
	TokenDuration time.Duration
}

// Engine configures the attendance decision engine.
type Engine struct {
	HighConfidenceThreshold float64
	CooldownWindow          time.Duration
	ConfirmationTimeout     time.Duration
}

// Automation configures the session automation loop and the absent sweep.
type Automation struct {
	PassInterval   time.Duration
	SweepInterval  time.Duration
	EarlyOpenGrace time.Duration
	ItemTimeout    time.Duration
}

// Logger configures the global zerolog logger.
type Logger struct {
	Level              string
	PrettyPrintConsole bool
}

// Server bundles every sub-config consumed by the service.
type Server struct {
	Database   Database
	Redis      Redis
	Echo       EchoServer
	Auth       Auth
	Engine     Engine
	Automation Automation
	Logger     Logger
}

// DefaultServiceConfigFromEnv returns the server config as parsed from the
// environment, with development-friendly defaults.
func DefaultServiceConfigFromEnv() Server {
	return Server{
		Database: Database{
			Host:     util.GetEnv("ATT_PGHOST", "localhost"),
			Port:     util.GetEnvAsInt("ATT_PGPORT", 5432),
			Username: util.GetEnv("ATT_PGUSER", "attendance"),
			Password: util.GetEnv("ATT_PGPASSWORD", ""),
			Database: util.GetEnv("ATT_PGDATABASE", "attendance"),
			SSLMode:  util.GetEnv("ATT_PGSSLMODE", "disable"),
		},
		Redis: Redis{
			Enabled:       util.GetEnvAsBool("ATT_REDIS_ENABLED", false),
			URL:           util.GetEnv("ATT_REDIS_URL", "redis://localhost:6379/0"),
			EventsChannel: util.GetEnv("ATT_REDIS_EVENTS_CHANNEL", "attendance:events"),
			KeyPrefix:     util.GetEnv("ATT_REDIS_KEY_PREFIX", "attendance:"),
		},
		Echo: EchoServer{
			ListenAddress:             util.GetEnv("ATT_SERVER_LISTEN_ADDRESS", ":8080"),
			EnableRecoverMiddleware:   util.GetEnvAsBool("ATT_SERVER_ENABLE_RECOVER", true),
			EnableRequestIDMiddleware: util.GetEnvAsBool("ATT_SERVER_ENABLE_REQUEST_ID", true),
		},
		Auth: Auth{
			Enabled:       util.GetEnvAsBool("ATT_AUTH_ENABLED", false),
			Secret:        util.GetEnv("ATT_AUTH_SECRET", ""),
			Issuer:        util.GetEnv("ATT_AUTH_ISSUER", "smart-attendance"),
			TokenDuration: util.GetEnvAsDuration("ATT_AUTH_TOKEN_DURATION", 24*time.Hour),
		},
		Engine: Engine{
			HighConfidenceThreshold: util.GetEnvAsFloat64("ATT_ENGINE_HIGH_CONFIDENCE_THRESHOLD", 0.8),
			CooldownWindow:          util.GetEnvAsDuration("ATT_ENGINE_COOLDOWN_WINDOW", 30*time.Second),
			ConfirmationTimeout:     util.GetEnvAsDuration("ATT_ENGINE_CONFIRMATION_TIMEOUT", 60*time.Second),
		},
		Automation: Automation{
			PassInterval:   util.GetEnvAsDuration("ATT_AUTOMATION_PASS_INTERVAL", 30*time.Second),
			SweepInterval:  util.GetEnvAsDuration("ATT_AUTOMATION_SWEEP_INTERVAL", 60*time.Second),
			EarlyOpenGrace: util.GetEnvAsDuration("ATT_AUTOMATION_EARLY_OPEN_GRACE", 10*time.Minute),
			ItemTimeout:    util.GetEnvAsDuration("ATT_AUTOMATION_ITEM_TIMEOUT", 5*time.Second),
		},
		Logger: Logger{
			Level:              util.GetEnv("ATT_LOGGER_LEVEL", "info"),
			PrettyPrintConsole: util.GetEnvAsBool("ATT_LOGGER_PRETTY_PRINT_CONSOLE", false),
		},
	}
}
