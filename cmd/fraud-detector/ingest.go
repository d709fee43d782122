package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"fraud-detector/internal/app"
	"fraud-detector/internal/config"
	"fraud-detector/internal/models"

	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var (
		dataFile string
		delay    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run a transaction file through the pipeline and print a summary",
		Long: `Ingest a JSON array of transactions in file order.

Examples:
  fraud-detector ingest --data-file data/transactions.json
  fraud-detector ingest --data-file data/transactions.json --delay 50ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("data-file") {
				dataFile = cfg.Pipeline.DataFile
			}
			if !cmd.Flags().Changed("delay") {
				delay = cfg.Pipeline.Delay
			}
			if delay < 0 {
				return fmt.Errorf("--delay must not be negative")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== Fraud Detection Pipeline ===")

			a, err := app.NewApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer a.Close(context.Background())

			fmt.Fprintf(out, "Loading transactions from %s...\n", dataFile)
			summary, err := a.Ingest(ctx, dataFile, delay)
			if err != nil {
				return err
			}

			printSummary(out, summary, storeDescription(cfg))
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data-file", "data/transactions.json", "JSON array of transactions to ingest")
	cmd.Flags().DurationVar(&delay, "delay", 0, "pause between transactions")

	return cmd
}

func printSummary(w io.Writer, s *models.BatchSummary, store string) {
	var pct float64
	if s.Total > 0 {
		pct = float64(s.Flagged) / float64(s.Total) * 100
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Pipeline Summary ===")
	fmt.Fprintf(w, "Total Transactions: %d\n", s.Total)
	fmt.Fprintf(w, "Flagged as Fraud:   %d (%.1f%%)\n", s.Flagged, pct)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped Duplicates: %d\n", s.Skipped)
	}
	fmt.Fprintf(w, "Processing Time:    %.2fs\n", s.ProcessingTimeSeconds)
	fmt.Fprintf(w, "\nStore: %s\n", store)
}

func storeDescription(cfg *config.Config) string {
	if cfg.Store.Driver == config.DriverPostgres {
		return fmt.Sprintf("postgres %s:%s/%s", cfg.DB.Host, cfg.DB.Port, cfg.DB.DBName)
	}
	return cfg.Store.SQLitePath
}
