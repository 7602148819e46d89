package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// runMigrations runs the Bun migrations used for sqlite and cockroachdb
func (b *BunDB) runMigrations(ctx context.Context) error {
	// Create a simple migrations tracking table
	_, err := b.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS bun_schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check which migrations have been applied
	type AppliedMigration struct {
		bun.BaseModel `bun:"table:bun_schema_migrations"`
		Version       string `bun:"version"`
	}
	var applied []AppliedMigration
	err = b.db.NewSelect().
		Model(&applied).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	// Run migrations in order
	migrations := []struct {
		version string
		name    string
		up      func(context.Context, *bun.DB) error
	}{
		{"001", "create_previews_table", init001CreatePreviewsTable},
		{"002", "create_jobs_table", init002CreateJobsTable},
	}

	for _, m := range migrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, b.db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}

		// Mark as applied
		_, err = b.db.NewInsert().
			Model(&AppliedMigration{Version: m.version}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.version, err)
		}
	}

	Logger.Info("All migrations completed successfully")
	return nil
}

// Migration 001: previews table
func init001CreatePreviewsTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunPreview)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create previews table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_previews_created_at ON previews(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_previews_document_hash ON previews(document_hash)",
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Migration 002: jobs table
func init002CreateJobsTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunJob)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}
