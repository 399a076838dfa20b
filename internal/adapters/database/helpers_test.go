package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/discoverhealth/backend/internal/infrastructure/clients/sqlite"
	"github.com/discoverhealth/backend/pkg/config"
)

// newTestDB opens a migrated SQLite database in a per-test directory
func newTestDB(t *testing.T) *sqlite.Client {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "discoverhealth.db"),
	}
	client, err := sqlite.NewClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, NewMigrator(client).Run(context.Background()))
	return client
}

type mockClient struct {
	db     *sql.DB
	driver string
}

func (m mockClient) DB() *sql.DB    { return m.db }
func (m mockClient) Driver() string { return m.driver }

func newMockClient(t *testing.T, driver string) (mockClient, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return mockClient{db: db, driver: driver}, mock
}

func insertUser(t *testing.T, client SQLClient, username string) int64 {
	t.Helper()

	id, err := NewUserAdapter(client).Create(context.Background(), username, "secret")
	require.NoError(t, err)
	return id
}
