package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/discoverhealth/backend/internal/domain/entities"
	"github.com/discoverhealth/backend/internal/domain/repositories"
	apperrors "github.com/discoverhealth/backend/pkg/errors"
)

const sessionTokenBytes = 32

// SessionService issues and resolves session tokens. Sessions expire after
// ttl of inactivity; every successful Resolve pushes the expiry forward.
type SessionService struct {
	store repositories.SessionRepository
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(store repositories.SessionRepository, ttl time.Duration) *SessionService {
	return &SessionService{store: store, ttl: ttl, now: time.Now}
}

// TTL returns the idle lifetime of a session
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Start creates a session for userID
func (s *SessionService) Start(ctx context.Context, userID int64) (*entities.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate session token", err)
	}

	now := s.now()
	session := &entities.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, apperrors.NewInternalError("failed to store session", err)
	}
	return session, nil
}

// Resolve maps a token to its user id and refreshes the expiry. Unknown,
// expired and empty tokens resolve to ok == false.
func (s *SessionService) Resolve(ctx context.Context, token string) (int64, bool, error) {
	if token == "" {
		return 0, false, nil
	}

	session, err := s.store.Get(ctx, token)
	if err != nil {
		return 0, false, apperrors.NewInternalError("failed to load session", err)
	}
	if session == nil {
		return 0, false, nil
	}

	if err := s.store.Touch(ctx, token, s.now().Add(s.ttl)); err != nil {
		return 0, false, apperrors.NewInternalError("failed to refresh session", err)
	}
	return session.UserID, true, nil
}

// End deletes the session. Ending an unknown or empty token is not an error.
func (s *SessionService) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.Delete(ctx, token); err != nil {
		return apperrors.NewInternalError("failed to delete session", err)
	}
	return nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
