package main

import (
	"context"
	"fmt"

	"fraud-detector/internal/app"
	"fraud-detector/internal/config"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server with the pipeline API and the live alert stream",
		Long: `Start the HTTP server.

Endpoints:
  GET  /healthz
  GET  /ws/alerts                  live fraud alerts over websocket
  POST /api/v1/pipeline/ingest     ingest a JSON batch synchronously
  POST /api/v1/pipeline/trigger    ingest a data file in the background`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := app.NewApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}

			if err := a.BuildBroadcastLayer(ctx); err != nil {
				a.Close(ctx)
				return err
			}
			a.BuildPipelineLayer()
			if err := a.BuildServerLayer(); err != nil {
				a.Close(ctx)
				return err
			}
			if err := a.BuildConsumerLayer(); err != nil {
				a.Close(ctx)
				return err
			}

			return a.Run()
		},
	}
}
