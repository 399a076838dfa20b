package repositories

import (
	"context"

	"github.com/discoverhealth/backend/internal/domain/entities"
)

// ResourceRepository defines the interface for healthcare resource persistence
type ResourceRepository interface {
	// ListByRegion returns resources whose region matches exactly, each with its reviews
	ListByRegion(ctx context.Context, region string) ([]*entities.Resource, error)

	// Create stores a new resource with zero recommendations and returns its id
	Create(ctx context.Context, resource *entities.Resource) (int64, error)

	// Recommend atomically increments the recommendation counter
	Recommend(ctx context.Context, id int64) error

	// AddReview attaches a review written by authorID and returns the review id
	AddReview(ctx context.Context, resourceID int64, text string, authorID int64) (int64, error)

	// GetByID retrieves a resource with its reviews
	GetByID(ctx context.Context, id int64) (*entities.Resource, error)

	// ListAll returns every resource with its reviews
	ListAll(ctx context.Context) ([]*entities.Resource, error)
}
