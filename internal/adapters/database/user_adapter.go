package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/discoverhealth/backend/internal/domain/entities"
	"github.com/discoverhealth/backend/internal/domain/repositories"
	"github.com/discoverhealth/backend/pkg/config"
	apperrors "github.com/discoverhealth/backend/pkg/errors"
)

// UserAdapter implements the UserRepository interface
type UserAdapter struct {
	client SQLClient
	db     *sqlx.DB
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client SQLClient) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     sqlx.NewDb(client.DB(), client.Driver()),
	}
}

// FindByUsername looks up a user by exact username
func (a *UserAdapter) FindByUsername(ctx context.Context, username string) (*entities.User, error) {
	query := a.db.Rebind(`SELECT id, username, password, "isAdmin" AS is_admin FROM users WHERE username = ?`)

	user := &entities.User{}
	err := a.db.GetContext(ctx, user, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to find user", err)
	}
	return user, nil
}

// Create inserts a user. Uniqueness is left to the users.username constraint
// so concurrent signups for one name cannot both succeed.
func (a *UserAdapter) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	var err error

	if a.client.Driver() == config.DriverPostgres {
		err = a.db.QueryRowxContext(ctx,
			`INSERT INTO users (username, password) VALUES ($1, $2) RETURNING id`,
			username, passwordHash,
		).Scan(&id)
	} else {
		var result sql.Result
		result, err = a.db.ExecContext(ctx,
			`INSERT INTO users (username, password) VALUES (?, ?)`,
			username, passwordHash,
		)
		if err == nil {
			id, err = result.LastInsertId()
		}
	}

	if isUniqueViolation(err) {
		return 0, apperrors.NewConflictError("Username already exists")
	}
	if err != nil {
		return 0, apperrors.NewInternalError("failed to create user", err)
	}
	return id, nil
}

// FindUsernameByID reports false when no user has the id
func (a *UserAdapter) FindUsernameByID(ctx context.Context, id int64) (string, bool, error) {
	var username string
	err := a.db.GetContext(ctx, &username, a.db.Rebind(`SELECT username FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewInternalError("failed to find user", err)
	}
	return username, true, nil
}
