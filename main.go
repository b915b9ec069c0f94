package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/projektkevin/smart-attendance/cmd/db"
	"github.com/projektkevin/smart-attendance/cmd/server"
	"github.com/projektkevin/smart-attendance/cmd/token"
	"github.com/projektkevin/smart-attendance/internal/config"
	"github.com/projektkevin/smart-attendance/internal/util"
)

func main() {
	cfg := config.DefaultServiceConfigFromEnv()
	initLogger(cfg.Logger)

	rootCmd := &cobra.Command{
		Use:   "attendance",
		Short: "Smart attendance decision engine and session automation service",
	}

	rootCmd.AddCommand(
		server.New(),
		db.New(),
		token.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}

func initLogger(cfg config.Logger) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(util.LogLevelFromString(cfg.Level))

	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
