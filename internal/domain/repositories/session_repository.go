package repositories

import (
	"context"
	"time"

	"github.com/discoverhealth/backend/internal/domain/entities"
)

// SessionRepository defines server-side session state
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error

	// Get returns nil without an error for unknown or expired tokens
	Get(ctx context.Context, token string) (*entities.Session, error)

	// Touch moves the expiry of a live session
	Touch(ctx context.Context, token string, expiresAt time.Time) error

	// Delete is a no-op for unknown tokens
	Delete(ctx context.Context, token string) error
}
