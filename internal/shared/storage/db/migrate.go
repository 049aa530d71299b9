package db

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

func migrationDir(databaseURL string) (dialect, dir string) {
	dialect = DialectForURL(databaseURL)
	dir = "migrations/postgres"
	if dialect == DialectSQLite {
		dir = "migrations/sqlite"
	}
	return dialect, dir
}

// RunMigrations applies embedded SQL migrations via goose. If database is
// nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, databaseURL string) error {
	if database == nil {
		return nil
	}
	dialect, dir := migrationDir(databaseURL)
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, dir)
}

// MigrationStatus prints the goose status table for the configured dialect.
func MigrationStatus(ctx context.Context, database *sql.DB, databaseURL string) error {
	if database == nil {
		return nil
	}
	dialect, dir := migrationDir(databaseURL)
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.StatusContext(ctx, database, dir)
}
