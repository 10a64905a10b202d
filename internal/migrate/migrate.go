// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/iammusic/submissions/migrations"
)

// Dialects understood by Up, mapped to their migration directory.
const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

var dirs = map[string]string{
	Postgres: "postgres",
	SQLite:   "sqlite",
}

// Up runs all pending migrations for dialect against db.
// goose keeps package-level state, so calls must not run concurrently.
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	dir, ok := dirs[dialect]
	if !ok {
		return fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, dir)
}

// UpPostgres opens dsn through the pgx stdlib driver and migrates it.
func UpPostgres(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return Up(ctx, db, Postgres)
}
