package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/discoverhealth/backend/internal/api/middleware"
	"github.com/discoverhealth/backend/internal/application/services"
	"github.com/discoverhealth/backend/internal/domain/entities"
)

// ResourceService defines the resource operations used by the handler.
type ResourceService interface {
	ListByRegion(ctx context.Context, region string) ([]*entities.Resource, error)
	GetByID(ctx context.Context, id int64) (*entities.Resource, error)
	Create(ctx context.Context, draft entities.ResourceDraft) (int64, error)
	Recommend(ctx context.Context, id int64) error
	AddReview(ctx context.Context, resourceID int64, text string, authorID int64) (int64, error)
	Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]entities.ResourceDistance, error)
}

// ResourceHandler handles healthcare resource HTTP requests
type ResourceHandler struct {
	service ResourceService
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(service ResourceService) *ResourceHandler {
	return &ResourceHandler{service: service}
}

// ListResources handles GET /api/resources?region=R
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.service.ListByRegion(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to retrieve resources")
		return
	}
	if resources == nil {
		resources = []*entities.Resource{}
	}
	respondWithJSON(w, http.StatusOK, resources)
}

// GetResource handles GET /api/resources/{id}
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourceID(w, r)
	if !ok {
		return
	}

	resource, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err, "Failed to retrieve resource")
		return
	}
	respondWithJSON(w, http.StatusOK, resource)
}

// CreateResource handles POST /api/resources
func (h *ResourceHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var draft entities.ResourceDraft
	if !decodeJSON(w, r, &draft) {
		return
	}

	id, err := h.service.Create(r.Context(), draft)
	if err != nil {
		respondWithAppError(w, r, err, "Failed to add resource")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// RecommendResource handles POST /api/resources/{id}/recommend
func (h *ResourceHandler) RecommendResource(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourceID(w, r)
	if !ok {
		return
	}

	if err := h.service.Recommend(r.Context(), id); err != nil {
		respondWithAppError(w, r, err, "Failed to recommend resource")
		return
	}
	respondWithMessage(w, http.StatusOK, "Recommendation added")
}

type reviewRequest struct {
	Review string `json:"review"`
}

// AddReview handles POST /api/resources/{id}/reviews
func (h *ResourceHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourceID(w, r)
	if !ok {
		return
	}

	var payload reviewRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	// RequireAuth guarantees the user id on guarded routes
	userID, _ := middleware.UserIDFromContext(r.Context())

	reviewID, err := h.service.AddReview(r.Context(), id, payload.Review, userID)
	if err != nil {
		respondWithAppError(w, r, err, "Failed to add review")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      reviewID,
		"message": "Review added",
	})
}

// NearbyResources handles GET /api/resources/nearby?lat=&lon=&radius_km=
func (h *ResourceHandler) NearbyResources(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(query.Get("lat")), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(query.Get("lon")), 64)
	if latErr != nil || lonErr != nil {
		respondWithError(w, http.StatusBadRequest, "lat and lon must be valid numbers")
		return
	}

	radius := services.DefaultNearbyRadiusKm
	if raw := strings.TrimSpace(query.Get("radius_km")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || !(parsed > 0) {
			respondWithError(w, http.StatusBadRequest,
				fmt.Sprintf("radius_km must be greater than 0 and at most %g", services.MaxNearbyRadiusKm))
			return
		}
		radius = parsed
	}

	results, err := h.service.Nearby(r.Context(), lat, lon, radius)
	if err != nil {
		respondWithAppError(w, r, err, "Failed to retrieve resources")
		return
	}
	respondWithJSON(w, http.StatusOK, results)
}

func parseResourceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid resource id")
		return 0, false
	}
	return id, true
}
