package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/discoverhealth/backend/internal/infrastructure/observability"
)

type contextKey string

const (
	userIDKey       contextKey = "session_user_id"
	sessionTokenKey contextKey = "session_token"
)

// SessionResolver maps a session token to the user it belongs to
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (int64, bool, error)
}

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// SessionMiddleware resolves the session cookie and, when it names a live
// session, stores the user id in the request context and re-issues the
// cookie with the refreshed expiry. An unknown or expired token leaves the
// request anonymous; a store failure answers 500.
func SessionMiddleware(resolver SessionResolver, cookie CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookie.Name)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionTokenKey, c.Value)
			userID, ok, err := resolver.Resolve(ctx, c.Value)
			if err != nil {
				observability.LoggerFromContext(ctx).Error().Err(err).Msg("Failed to resolve session")
				writeJSONError(w, http.StatusInternalServerError, "Failed to load session")
				return
			}
			if ok {
				ctx = context.WithValue(ctx, userIDKey, userID)
				SetSessionCookie(w, cookie, c.Value)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that carry no live session
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized: Please log in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// UserIDFromContext returns the authenticated user id, if any
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// SessionTokenFromContext returns the session token presented by the client,
// whether or not it resolved to a live session
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey).(string)
	return token
}

// WithUserID returns a context carrying an authenticated user id
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithSessionToken returns a context carrying the client's session token
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenKey, token)
}

// SetSessionCookie writes the session cookie with a full TTL, replacing any
// session cookie already queued on the response.
func SetSessionCookie(w http.ResponseWriter, cookie CookieConfig, token string) {
	w.Header().Del("Set-Cookie")
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cookie.TTL),
		MaxAge:   int(cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client
func ClearSessionCookie(w http.ResponseWriter, cookie CookieConfig) {
	w.Header().Del("Set-Cookie")
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
