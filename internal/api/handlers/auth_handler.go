package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/discoverhealth/backend/internal/api/middleware"
	"github.com/discoverhealth/backend/internal/application/services"
)

// AuthService defines the account and session operations used by the handler.
type AuthService interface {
	Signup(ctx context.Context, creds services.Credentials) (int64, string, error)
	Login(ctx context.Context, creds services.Credentials, previousToken string) (*services.LoginResult, error)
	CurrentUser(ctx context.Context, userID int64, authenticated bool) (string, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler handles signup, login and logout
type AuthHandler struct {
	service AuthService
	cookie  middleware.CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService, cookie middleware.CookieConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookie:  cookie,
	}
}

// Signup handles POST /api/signup. It does not log the new user in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var creds services.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	id, username, err := h.service.Signup(r.Context(), creds)
	if err != nil {
		respondWithAppError(w, r, err, "Failed to create user")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": fmt.Sprintf("Signup successful! Please log in as %s.", username),
		"id":      id,
	})
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds services.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	result, err := h.service.Login(r.Context(), creds, middleware.SessionTokenFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to log in")
		return
	}

	middleware.SetSessionCookie(w, h.cookie, result.Session.Token)
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"username": result.Username,
	})
}

// CurrentUser handles GET /api/user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	username, err := h.service.CurrentUser(r.Context(), userID, ok)
	if err != nil {
		respondWithAppError(w, r, err, "Failed to retrieve user")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"username": username})
}

// Logout handles POST /api/logout. It succeeds with or without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.SessionTokenFromContext(r.Context())); err != nil {
		respondWithAppError(w, r, err, "Failed to log out")
		return
	}

	middleware.ClearSessionCookie(w, h.cookie)
	respondWithMessage(w, http.StatusOK, "Logout successful")
}
