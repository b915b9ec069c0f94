package token

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/projektkevin/smart-attendance/internal/auth"
	"github.com/projektkevin/smart-attendance/internal/config"
)

func New() *cobra.Command {
	var deviceID string
	var permissions []string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generates a device bearer token from the configured secret",
		Run: func(_ *cobra.Command, _ []string) {
			cfg := config.DefaultServiceConfigFromEnv()
			if cfg.Auth.Secret == "" {
				log.Fatal().Msg("ATT_AUTH_SECRET is not set")
			}

			manager := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenDuration)
			signed, err := manager.Generate(deviceID, permissions)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to generate token")
			}

			fmt.Println(signed)
		},
	}

	cmd.Flags().StringVar(&deviceID, "device", "camera-1", "Device id embedded in the token")
	cmd.Flags().StringSliceVar(&permissions, "permission", []string{
		auth.PermissionDetectionsWrite,
	}, "Permissions embedded in the token")

	return cmd
}
