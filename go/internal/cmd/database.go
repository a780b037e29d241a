package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/mcdev12/gavel/go/internal/dbconfig"
)

// setupPool opens the pgx pool used by the domain repositories.
func setupPool(ctx context.Context, cfg dbconfig.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.PoolDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Printf("Connected to database: %s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Database)
	return pool, nil
}

// setupSQLDatabase opens the database/sql handle the outbox worker polls
// with. It deliberately stays on lib/pq so the worker's FOR UPDATE SKIP
// LOCKED batches run outside the pgx pool.
func setupSQLDatabase(cfg dbconfig.Config) (*sql.DB, error) {
	database, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return database, nil
}

// runMigrations brings the schema up to date on startup.
func runMigrations(cfg dbconfig.Config, path string) error {
	m, err := migrate.New("file://"+path, cfg.DSN())
	if err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("database migrations applied")
	return nil
}
