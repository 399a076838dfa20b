package repositories

import (
	"context"

	"github.com/discoverhealth/backend/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// FindByUsername returns nil without an error when no user matches
	FindByUsername(ctx context.Context, username string) (*entities.User, error)

	// Create inserts a user. A taken username yields a conflict error.
	Create(ctx context.Context, username, passwordHash string) (int64, error)

	// FindUsernameByID reports false when the id is unknown
	FindUsernameByID(ctx context.Context, id int64) (string, bool, error)
}
