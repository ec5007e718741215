package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every embedded migration in file name order.
// Migrations are idempotent, so they run on every start.
func Migrate(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto;`); err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		sqlb, err := migrationFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}
		if _, err := db.ExecContext(ctx, string(sqlb)); err != nil {
			return fmt.Errorf("migrate:apply %s: %w", e.Name(), err)
		}
		log.Info("migration applied", zap.String("file", e.Name()))
	}
	return nil
}
