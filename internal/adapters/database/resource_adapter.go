package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/discoverhealth/backend/internal/domain/entities"
	"github.com/discoverhealth/backend/internal/domain/repositories"
	"github.com/discoverhealth/backend/pkg/config"
	apperrors "github.com/discoverhealth/backend/pkg/errors"
)

const (
	resourcesTable = "healthcare_resources"
	reviewsTable   = "reviews"

	// keeps IN lists well below SQLite's bound-parameter limit
	reviewBatchSize = 500
)

var resourceColumns = []any{
	"id", "name", "category", "country", "region",
	"lat", "lon", "description", "recommendations",
}

// ResourceAdapter implements the ResourceRepository interface
type ResourceAdapter struct {
	client SQLClient
	db     *goqu.Database
}

// NewResourceAdapter creates a new resource adapter
func NewResourceAdapter(client SQLClient) repositories.ResourceRepository {
	return &ResourceAdapter{
		client: client,
		db:     newGoquDB(client),
	}
}

// ListByRegion returns the resources in region ordered by id, each with its reviews
func (a *ResourceAdapter) ListByRegion(ctx context.Context, region string) ([]*entities.Resource, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return nil, apperrors.NewValidationError("Region query parameter is required")
	}

	ds := a.db.From(resourcesTable).
		Prepared(true).
		Select(resourceColumns...).
		Where(goqu.Ex{"region": region}).
		Order(goqu.I("id").Asc())

	return a.listWithReviews(ctx, ds)
}

// ListAll returns every resource ordered by id, each with its reviews
func (a *ResourceAdapter) ListAll(ctx context.Context) ([]*entities.Resource, error) {
	ds := a.db.From(resourcesTable).
		Prepared(true).
		Select(resourceColumns...).
		Order(goqu.I("id").Asc())

	return a.listWithReviews(ctx, ds)
}

// GetByID retrieves a resource with its reviews
func (a *ResourceAdapter) GetByID(ctx context.Context, id int64) (*entities.Resource, error) {
	ds := a.db.From(resourcesTable).
		Prepared(true).
		Select(resourceColumns...).
		Where(goqu.Ex{"id": id})

	resources, err := a.listWithReviews(ctx, ds)
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, apperrors.NewNotFoundError("Resource not found")
	}
	return resources[0], nil
}

// Create validates and inserts a resource with zero recommendations
func (a *ResourceAdapter) Create(ctx context.Context, resource *entities.Resource) (int64, error) {
	if resource == nil {
		return 0, apperrors.NewValidationError("resource is required")
	}
	resource.Normalize()
	if err := resource.Validate(); err != nil {
		return 0, err
	}

	ds := a.db.Insert(resourcesTable).
		Prepared(true).
		Rows(goqu.Record{
			"name":            resource.Name,
			"category":        resource.Category,
			"country":         resource.Country,
			"region":          resource.Region,
			"lat":             resource.Lat,
			"lon":             resource.Lon,
			"description":     resource.Description,
			"recommendations": 0,
		})

	id, err := insertReturningID(ctx, a.client, ds)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to create resource", err)
	}

	resource.ID = id
	resource.Recommendations = 0
	resource.Reviews = []string{}
	return id, nil
}

// Recommend increments the counter in a single UPDATE statement
func (a *ResourceAdapter) Recommend(ctx context.Context, id int64) error {
	query, args, err := a.db.Update(resourcesTable).
		Prepared(true).
		Set(goqu.Record{"recommendations": goqu.L("recommendations + 1")}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build recommend query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to recommend resource", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError("Resource not found")
	}
	return nil
}

// AddReview stores a review for an existing resource
func (a *ResourceAdapter) AddReview(ctx context.Context, resourceID int64, text string, authorID int64) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, apperrors.NewValidationError("Review text is required")
	}

	exists, err := a.exists(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, apperrors.NewNotFoundError("Resource not found")
	}

	ds := a.db.Insert(reviewsTable).
		Prepared(true).
		Rows(goqu.Record{
			"resource_id": resourceID,
			"review":      text,
			"user_id":     authorID,
		})

	id, err := insertReturningID(ctx, a.client, ds)
	if err != nil {
		// resource or author removed between the check and the insert
		if isForeignKeyViolation(err) {
			return 0, apperrors.NewNotFoundError("Resource not found")
		}
		return 0, apperrors.NewInternalError("failed to add review", err)
	}
	return id, nil
}

func (a *ResourceAdapter) exists(ctx context.Context, id int64) (bool, error) {
	query, args, err := a.db.From(resourcesTable).
		Prepared(true).
		Select("id").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build lookup query", err)
	}

	var found int64
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to look up resource", err)
	}
	return true, nil
}

// insertReturningID runs an insert and reports the generated id. lib/pq does
// not implement LastInsertId, so postgres uses RETURNING instead.
func insertReturningID(ctx context.Context, client SQLClient, ds *goqu.InsertDataset) (int64, error) {
	if client.Driver() == config.DriverPostgres {
		query, args, err := ds.Returning("id").ToSQL()
		if err != nil {
			return 0, err
		}
		var id int64
		if err := client.DB().QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, err
	}
	result, err := client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (a *ResourceAdapter) listWithReviews(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Resource, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	resources, err := a.scanResources(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if err := a.attachReviews(ctx, resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// scanResources drains and closes the result set before returning; the
// SQLite client runs on a single connection.
func (a *ResourceAdapter) scanResources(ctx context.Context, query string, args []any) ([]*entities.Resource, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list resources", err)
	}
	defer rows.Close()

	resources := make([]*entities.Resource, 0)
	for rows.Next() {
		r := &entities.Resource{Reviews: []string{}}
		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Category,
			&r.Country,
			&r.Region,
			&r.Lat,
			&r.Lon,
			&r.Description,
			&r.Recommendations,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan resource", err)
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate resources", err)
	}
	return resources, nil
}

// attachReviews loads review texts in review id order. Reviews are fetched in
// a separate query so texts containing commas or newlines come back intact.
func (a *ResourceAdapter) attachReviews(ctx context.Context, resources []*entities.Resource) error {
	if len(resources) == 0 {
		return nil
	}

	byID := make(map[int64]*entities.Resource, len(resources))
	ids := make([]int64, 0, len(resources))
	for _, r := range resources {
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}

	for start := 0; start < len(ids); start += reviewBatchSize {
		end := min(start+reviewBatchSize, len(ids))
		if err := a.loadReviews(ctx, ids[start:end], byID); err != nil {
			return err
		}
	}
	return nil
}

func (a *ResourceAdapter) loadReviews(ctx context.Context, ids []int64, byID map[int64]*entities.Resource) error {
	query, args, err := a.db.From(reviewsTable).
		Prepared(true).
		Select("resource_id", "review").
		Where(goqu.Ex{"resource_id": ids}).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build reviews query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to list reviews", err)
	}
	defer rows.Close()

	for rows.Next() {
		var resourceID int64
		var text string
		if err := rows.Scan(&resourceID, &text); err != nil {
			return apperrors.NewInternalError("failed to scan review", err)
		}
		if r, ok := byID[resourceID]; ok {
			r.Reviews = append(r.Reviews, text)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewInternalError("failed to iterate reviews", err)
	}
	return nil
}
