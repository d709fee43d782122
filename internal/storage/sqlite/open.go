package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"fraud-detector/internal/config"
	"fraud-detector/internal/db"
	"fraud-detector/migrations"
)

// Open migrates the database file at path and returns a store over it.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if err := db.RunMigrations(migrations.SQLite, "sqlite", config.SQLiteMigrationURL(path)); err != nil {
		return nil, fmt.Errorf("sqlite migrations: %w", err)
	}

	conn, err := db.OpenSQLite(ctx, config.SQLiteDSN(path), log)
	if err != nil {
		return nil, err
	}

	return NewStore(conn), nil
}
