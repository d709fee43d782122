package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens the database file and checks that WAL mode is active.
func OpenSQLite(ctx context.Context, dsn string, log *slog.Logger) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}

	var mode string
	if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to read journal mode: %w", err)
	}
	if mode != "wal" {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite journal mode is %q, WAL is required", mode)
	}

	log.Info("opened sqlite database", slog.String("journal_mode", mode))
	return conn, nil
}
