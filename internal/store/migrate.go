package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/ykanchan/pywebview-tw/internal/migrations"
)

// gooseUp is a seam for testing migration failures.
var gooseUp = func(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Migrate brings the schema of db up to date. A provider is built per call,
// so documents opened concurrently do not share goose state.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := gooseUp(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	return nil
}
