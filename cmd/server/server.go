package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/api/routes"
	"github.com/projektkevin/smart-attendance/internal/config"
	"github.com/projektkevin/smart-attendance/internal/events"
	"github.com/projektkevin/smart-attendance/internal/storage"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the attendance server",
		Long: `Starts the attendance decision engine, the session automation
loops and the HTTP API, and blocks until interrupted.`,
		Run: func(_ *cobra.Command, _ []string) {
			cfg := config.DefaultServiceConfigFromEnv()
			if err := runServer(cfg); err != nil {
				log.Fatal().Err(err).Msg("Failed to run server")
			}
		},
	}
}

func runServer(cfg config.Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := api.InitNewServer(cfg)
	if err != nil {
		return err
	}

	api.InitRouter(s)
	routes.AttachAllRoutes(s)

	s.Automation.Start(ctx)

	if cfg.Redis.Enabled {
		startRedisPublisher(ctx, cfg, s)
	}

	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Server stopped")
			stop()
		}
	}()

	log.Info().Str("listen_address", cfg.Echo.ListenAddress).Msg("Server started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}

// startRedisPublisher forwards every hub event to the configured Redis
// channel and mirrors open/close transitions into the open-session key.
func startRedisPublisher(ctx context.Context, cfg config.Server, s *api.Server) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Error().Err(err).Msg("Invalid redis URL, event publishing disabled")
		return
	}

	client := redis.NewClient(opts)
	publisher := storage.NewRedisPublisher(client, cfg.Redis.EventsChannel, cfg.Redis.KeyPrefix)
	subID, ch := s.Hub.Subscribe(256)

	go func() {
		defer s.Hub.Unsubscribe(subID)
		defer func() { _ = client.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}

				if err := publisher.Publish(ctx, event); err != nil {
					log.Warn().Err(err).Str("kind", string(event.Kind)).Msg("Failed to publish event to redis")
				}

				switch event.Kind {
				case events.KindSessionAutoOpened:
					if err := publisher.SetOpenSession(ctx, event.SessionID); err != nil {
						log.Warn().Err(err).Msg("Failed to update open session key")
					}
				case events.KindSessionAutoClosed:
					if err := publisher.ClearOpenSession(ctx); err != nil {
						log.Warn().Err(err).Msg("Failed to clear open session key")
					}
				}
			}
		}
	}()

	log.Info().Str("channel", cfg.Redis.EventsChannel).Msg("Redis event publisher started")
}
