package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/stapelberg/postgrestest"
)

// startEphemeralPostgres starts a throwaway PostgreSQL server with a fresh database.
// The caller owns both the server and the connection.
func startEphemeralPostgres(ctx context.Context) (*postgrestest.Server, *sql.DB, error) {
	Logger.Info("Starting ephemeral PostgreSQL server...")

	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start ephemeral postgres: %w", err)
	}
	Logger.Info("Ephemeral PostgreSQL server started", "dsn", pgt.DefaultDatabase())

	dsn, err := pgt.CreateDatabase(ctx)
	if err != nil {
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to create preview database: %w", err)
	}
	Logger.Info("Created ephemeral database", "dsn", dsn)

	// The DSN is in key/value form, which lib/pq understands
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to open preview database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Logger.Info("Connected to ephemeral PostgreSQL database successfully")
	return pgt, db, nil
}
