package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const (
	sqliteDialect = "sqlite3"
	migrationsDir = "sql"
)

//go:embed sql/*.sql
var embedded embed.FS

// Up runs all pending embedded SQL migrations.
func Up(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	const operation = "migrations.Up"
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := prepare(); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("%s: run goose up migrations: %w", operation, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("%s: read schema version: %w", operation, err)
	}
	logger.Info("database migrations applied", zap.Int64("version", version))
	return nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB) error {
	const operation = "migrations.Down"

	if err := prepare(); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if err := goose.DownContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("%s: run goose down migration: %w", operation, err)
	}
	return nil
}

func prepare() error {
	goose.SetBaseFS(embedded)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(sqliteDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}
