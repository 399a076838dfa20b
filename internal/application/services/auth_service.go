package services

import (
	"context"
	"strings"
	"sync"

	"github.com/discoverhealth/backend/internal/domain/entities"
	"github.com/discoverhealth/backend/internal/domain/providers"
	"github.com/discoverhealth/backend/internal/domain/repositories"
	"github.com/discoverhealth/backend/internal/infrastructure/observability"
	apperrors "github.com/discoverhealth/backend/pkg/errors"
	"github.com/discoverhealth/backend/pkg/metrics"
)

const (
	msgCredentialsRequired = "Username and password are required"
	msgInvalidCredentials  = "Invalid username or password"
	msgNotLoggedIn         = "Not logged in"
	msgPasswordTooLong     = "Password must be at most 72 bytes"

	// bcrypt refuses longer passwords
	maxPasswordBytes = 72
)

// Credentials are the username and password submitted by a client
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) normalized() (Credentials, error) {
	c.Username = strings.TrimSpace(c.Username)
	c.Password = strings.TrimSpace(c.Password)
	if c.Username == "" || c.Password == "" {
		return c, apperrors.NewValidationError(msgCredentialsRequired)
	}
	return c, nil
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Username string
	Session  *entities.Session
}

// AuthService handles signup, login and logout
type AuthService struct {
	users    repositories.UserRepository
	hasher   providers.PasswordHasher
	sessions *SessionService

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new auth service
func NewAuthService(users repositories.UserRepository, hasher providers.PasswordHasher, sessions *SessionService) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
	}
}

// Signup creates an account. It does not start a session.
func (s *AuthService) Signup(ctx context.Context, creds Credentials) (int64, string, error) {
	creds, err := creds.normalized()
	if err != nil {
		metrics.RecordAuthEvent("signup", "invalid")
		return 0, "", err
	}
	if len(creds.Password) > maxPasswordBytes {
		metrics.RecordAuthEvent("signup", "invalid")
		return 0, "", apperrors.NewValidationError(msgPasswordTooLong)
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		metrics.RecordAuthEvent("signup", "error")
		return 0, "", apperrors.NewInternalError("failed to hash password", err)
	}

	id, err := s.users.Create(ctx, creds.Username, hash)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrorTypeConflict) {
			metrics.RecordAuthEvent("signup", "conflict")
		} else {
			metrics.RecordAuthEvent("signup", "error")
		}
		return 0, "", err
	}

	metrics.RecordAuthEvent("signup", "success")
	observability.LoggerFromContext(ctx).Info().Int64("user_id", id).Msg("User signed up")
	return id, creds.Username, nil
}

// Login verifies credentials and starts a fresh session. previousToken, when
// set, is ended first so a login never reuses an existing session. Unknown
// users and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, creds Credentials, previousToken string) (*LoginResult, error) {
	creds, err := creds.normalized()
	if err != nil {
		metrics.RecordAuthEvent("login", "invalid")
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, creds.Username)
	if err != nil {
		metrics.RecordAuthEvent("login", "error")
		return nil, err
	}
	if user == nil {
		// keep the timing of unknown users close to a real password check
		s.hasher.Compare(s.dummyPasswordHash(), creds.Password)
		metrics.RecordAuthEvent("login", "rejected")
		return nil, apperrors.NewUnauthorizedError(msgInvalidCredentials)
	}
	if !s.hasher.Compare(user.Password, creds.Password) {
		metrics.RecordAuthEvent("login", "rejected")
		return nil, apperrors.NewUnauthorizedError(msgInvalidCredentials)
	}

	if err := s.sessions.End(ctx, previousToken); err != nil {
		metrics.RecordAuthEvent("login", "error")
		return nil, err
	}
	session, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		metrics.RecordAuthEvent("login", "error")
		return nil, err
	}

	metrics.RecordAuthEvent("login", "success")
	return &LoginResult{Username: user.Username, Session: session}, nil
}

// CurrentUser returns the username behind an authenticated user id
func (s *AuthService) CurrentUser(ctx context.Context, userID int64, authenticated bool) (string, error) {
	if !authenticated {
		return "", apperrors.NewUnauthorizedError(msgNotLoggedIn)
	}
	username, ok, err := s.users.FindUsernameByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.NewUnauthorizedError(msgNotLoggedIn)
	}
	return username, nil
}

// Logout ends the session behind token, if any
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.End(ctx, token); err != nil {
		metrics.RecordAuthEvent("logout", "error")
		return err
	}
	metrics.RecordAuthEvent("logout", "success")
	return nil
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		if hash, err := s.hasher.Hash("discoverhealth-timing-equaliser"); err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
