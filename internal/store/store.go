// Package store opens the SQLite vault database and applies the embedded
// goose migrations. The schema is file-compatible with other VaultKey
// implementations sharing the same database file.
package store

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/store/migrations"
	_ "modernc.org/sqlite"
)

// DSN builds a SQLite connection string for the given database path, with
// foreign-key enforcement enabled on every pooled connection. Referential
// cascade from users to tokens and secrets depends on this pragma.
func DSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open connects to the database identified by dsn and runs migrations.
// Any failure is reported as a database-kind domain error.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, common.NewDatabaseError("Failed to create database connection")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, common.NewDatabaseError("Failed to create database connection")
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return common.NewDatabaseError("Failed to run database migrations")
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return common.NewDatabaseError("Failed to run database migrations")
	}

	return nil
}

// Close releases the underlying connection pool.
func Close(db *sql.DB) error {
	if err := db.Close(); err != nil {
		return common.NewDatabaseError("Failed to close database connection")
	}
	return nil
}
