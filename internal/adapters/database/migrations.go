package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"

	"github.com/discoverhealth/backend/pkg/config"
)

type migration struct {
	version  int
	name     string
	sqlite   []string
	postgres []string
}

// The users.isAdmin column keeps its legacy camel-case name so databases
// created by earlier releases open unchanged.
var migrations = []migration{
	{
		version: 1,
		name:    "create_healthcare_resources",
		sqlite: []string{
			`CREATE TABLE IF NOT EXISTS healthcare_resources (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				category TEXT NOT NULL,
				country TEXT NOT NULL,
				region TEXT NOT NULL,
				lat REAL NOT NULL,
				lon REAL NOT NULL,
				description TEXT NOT NULL,
				recommendations INTEGER NOT NULL DEFAULT 0 CHECK (recommendations >= 0)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_healthcare_resources_region ON healthcare_resources (region)`,
		},
		postgres: []string{
			`CREATE TABLE IF NOT EXISTS healthcare_resources (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				category TEXT NOT NULL,
				country TEXT NOT NULL,
				region TEXT NOT NULL,
				lat DOUBLE PRECISION NOT NULL,
				lon DOUBLE PRECISION NOT NULL,
				description TEXT NOT NULL,
				recommendations BIGINT NOT NULL DEFAULT 0 CHECK (recommendations >= 0)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_healthcare_resources_region ON healthcare_resources (region)`,
		},
	},
	{
		version: 2,
		name:    "create_users",
		sqlite: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL,
				isAdmin INTEGER NOT NULL DEFAULT 0
			)`,
		},
		postgres: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL,
				"isAdmin" BOOLEAN NOT NULL DEFAULT FALSE
			)`,
		},
	},
	{
		version: 3,
		name:    "create_reviews",
		sqlite: []string{
			`CREATE TABLE IF NOT EXISTS reviews (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				resource_id INTEGER NOT NULL REFERENCES healthcare_resources (id) ON DELETE CASCADE,
				review TEXT NOT NULL,
				user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_reviews_resource_id ON reviews (resource_id)`,
		},
		postgres: []string{
			`CREATE TABLE IF NOT EXISTS reviews (
				id BIGSERIAL PRIMARY KEY,
				resource_id BIGINT NOT NULL REFERENCES healthcare_resources (id) ON DELETE CASCADE,
				review TEXT NOT NULL,
				user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_reviews_resource_id ON reviews (resource_id)`,
		},
	},
}

const migrationsTable = "schema_migrations"

// Migrator creates and upgrades the schema. Every migration runs at most once
// and is recorded in schema_migrations inside the same transaction.
type Migrator struct {
	client SQLClient
	db     *goqu.Database
}

// NewMigrator creates a new migrator
func NewMigrator(client SQLClient) *Migrator {
	return &Migrator{
		client: client,
		db:     newGoquDB(client),
	}
}

// Run applies every pending migration in version order
func (m *Migrator) Run(ctx context.Context) error {
	if _, err := m.client.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create %s table: %w", migrationsTable, err)
	}

	for _, mig := range migrations {
		applied, err := m.isApplied(ctx, mig.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", mig.version, mig.name, err)
		}
		log.Info().Int("version", mig.version).Str("name", mig.name).Msg("Applied migration")
	}
	return nil
}

func (m *Migrator) isApplied(ctx context.Context, version int) (bool, error) {
	query, args, err := m.db.From(migrationsTable).
		Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{"version": version}).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("failed to build migration lookup: %w", err)
	}

	var count int
	if err := m.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}

func (m *Migrator) apply(ctx context.Context, mig migration) error {
	statements := mig.sqlite
	if m.client.Driver() == config.DriverPostgres {
		statements = mig.postgres
	}

	record, args, err := m.db.Insert(migrationsTable).
		Prepared(true).
		Rows(goqu.Record{"version": mig.version, "name": mig.name, "applied_at": time.Now().UTC()}).
		ToSQL()
	if err != nil {
		return err
	}

	tx, err := m.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}
