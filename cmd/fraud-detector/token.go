package main

import (
	"fmt"
	"time"

	"fraud-detector/internal/config"
	"fraud-detector/internal/service"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token [observer]",
		Short: "Issue a token for subscribing to /ws/alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}

			auth := service.NewObserverAuthService(cfg.Observer.JWTSecret)
			token, expiresAt, err := auth.IssueToken(args[0], ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
