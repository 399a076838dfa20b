package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/discoverhealth/backend/internal/infrastructure/observability"
	apperrors "github.com/discoverhealth/backend/pkg/errors"
)

const maxRequestBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

func respondWithMessage(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"message": message,
	})
}

// respondWithAppError maps err to its status code. Internal errors are logged
// and answered with the route's fixed message so driver details never leak.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error, internalMessage string) {
	status := apperrors.HTTPStatus(err)
	message := apperrors.MessageOf(err)
	if status == http.StatusInternalServerError || message == "" {
		observability.LoggerFromContext(r.Context()).Error().
			Err(err).
			Str("route", r.Pattern).
			Msg(internalMessage)
		respondWithError(w, http.StatusInternalServerError, internalMessage)
		return
	}
	respondWithError(w, status, message)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// so that field validation reports what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
