package database

import (
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/discoverhealth/backend/pkg/config"
)

// SQLClient is the connection the SQL adapters run against. Both the SQLite
// and the PostgreSQL clients satisfy it.
type SQLClient interface {
	DB() *sql.DB
	Driver() string
}

// goquDialect maps a database/sql driver name to the goqu dialect registered for it
func goquDialect(driver string) string {
	if driver == config.DriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

func newGoquDB(client SQLClient) *goqu.Database {
	return goqu.New(goquDialect(client.Driver()), client.DB())
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}
