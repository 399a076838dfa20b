package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/discoverhealth/backend/pkg/config"
	"github.com/discoverhealth/backend/pkg/retry"
)

// Client represents an embedded SQLite database
type Client struct {
	db *sql.DB
}

// NewClient opens the database file named in cfg and verifies it with retry
func NewClient(ctx context.Context, cfg *config.DatabaseConfig) (*Client, error) {
	return Open(ctx, cfg.DatabaseDSN())
}

// Open opens a SQLite database from a go-sqlite3 DSN.
func Open(ctx context.Context, dsn string) (*Client, error) {
	db, err := sql.Open(config.DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// SQLite allows a single writer. One pooled connection serialises
	// statements in-process so writers queue instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	err = retry.Do(ctx, retry.DefaultConfig(), "SQLite", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return err
		}
		_, err := db.ExecContext(pingCtx, "PRAGMA foreign_keys = ON")
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	log.Info().Str("dsn", dsn).Msg("Successfully opened SQLite database")
	return &Client{db: db}, nil
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db
}

// Driver returns the database/sql driver name
func (c *Client) Driver() string {
	return config.DriverSQLite
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
