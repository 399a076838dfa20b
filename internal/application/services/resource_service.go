package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/discoverhealth/backend/internal/domain/entities"
	"github.com/discoverhealth/backend/internal/domain/repositories"
	"github.com/discoverhealth/backend/internal/infrastructure/observability"
	apperrors "github.com/discoverhealth/backend/pkg/errors"
	"github.com/discoverhealth/backend/pkg/metrics"
)

// Nearby search radius bounds in kilometres
const (
	DefaultNearbyRadiusKm = 10.0
	MaxNearbyRadiusKm     = 500.0
)

// ResourceService handles business logic for healthcare resources
type ResourceService struct {
	repo repositories.ResourceRepository
}

// NewResourceService creates a new resource service
func NewResourceService(repo repositories.ResourceRepository) *ResourceService {
	return &ResourceService{repo: repo}
}

// ListByRegion returns the resources whose region matches exactly
func (s *ResourceService) ListByRegion(ctx context.Context, region string) ([]*entities.Resource, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return nil, apperrors.NewValidationError("Region query parameter is required")
	}

	ctx, span := observability.StartSpan(ctx, "ResourceService.ListByRegion")
	defer span.End()

	resources, err := s.repo.ListByRegion(ctx, region)
	observability.RecordError(span, err)
	return resources, err
}

// GetByID retrieves a resource with its reviews
func (s *ResourceService) GetByID(ctx context.Context, id int64) (*entities.Resource, error) {
	if id <= 0 {
		return nil, apperrors.NewNotFoundError("Resource not found")
	}
	return s.repo.GetByID(ctx, id)
}

// Create validates the draft and stores it
func (s *ResourceService) Create(ctx context.Context, draft entities.ResourceDraft) (int64, error) {
	resource, err := draft.Build()
	if err != nil {
		return 0, err
	}

	ctx, span := observability.StartSpan(ctx, "ResourceService.Create")
	defer span.End()

	id, err := s.repo.Create(ctx, resource)
	if err != nil {
		observability.RecordError(span, err)
		return 0, err
	}

	metrics.ResourcesCreated.Inc()
	observability.LoggerFromContext(ctx).Info().
		Int64("resource_id", id).
		Str("region", resource.Region).
		Msg("Resource created")
	return id, nil
}

// Recommend adds one recommendation to a resource
func (s *ResourceService) Recommend(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperrors.NewNotFoundError("Resource not found")
	}
	if err := s.repo.Recommend(ctx, id); err != nil {
		return err
	}
	metrics.Recommendations.Inc()
	return nil
}

// AddReview attaches a review by authorID to a resource
func (s *ResourceService) AddReview(ctx context.Context, resourceID int64, text string, authorID int64) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, apperrors.NewValidationError("Review text is required")
	}
	if resourceID <= 0 {
		return 0, apperrors.NewNotFoundError("Resource not found")
	}

	id, err := s.repo.AddReview(ctx, resourceID, text, authorID)
	if err != nil {
		return 0, err
	}
	metrics.ReviewsCreated.Inc()
	return id, nil
}

// Nearby returns resources within radiusKm of the point, closest first.
// A zero radius selects DefaultNearbyRadiusKm.
func (s *ResourceService) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]entities.ResourceDistance, error) {
	if radiusKm == 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	if err := validateNearby(lat, lon, radiusKm); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "ResourceService.Nearby")
	defer span.End()

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	results := make([]entities.ResourceDistance, 0)
	for _, r := range all {
		d := entities.DistanceKm(lat, lon, r.Lat, r.Lon)
		if d <= radiusKm {
			results = append(results, entities.ResourceDistance{Resource: r, DistanceKm: d})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceKm == results[j].DistanceKm {
			return results[i].ID < results[j].ID
		}
		return results[i].DistanceKm < results[j].DistanceKm
	})
	return results, nil
}

func validateNearby(lat, lon, radiusKm float64) error {
	if !(lat >= -90 && lat <= 90) {
		return apperrors.NewValidationError("lat must be between -90 and 90")
	}
	if !(lon >= -180 && lon <= 180) {
		return apperrors.NewValidationError("lon must be between -180 and 180")
	}
	if !(radiusKm > 0 && radiusKm <= MaxNearbyRadiusKm) {
		return apperrors.NewValidationError(fmt.Sprintf("radius_km must be greater than 0 and at most %g", MaxNearbyRadiusKm))
	}
	return nil
}
