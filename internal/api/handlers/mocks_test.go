package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/discoverhealth/backend/internal/application/services"
	"github.com/discoverhealth/backend/internal/domain/entities"
)

type MockResourceService struct {
	mock.Mock
}

func (m *MockResourceService) ListByRegion(ctx context.Context, region string) ([]*entities.Resource, error) {
	args := m.Called(ctx, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Resource), args.Error(1)
}

func (m *MockResourceService) GetByID(ctx context.Context, id int64) (*entities.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Resource), args.Error(1)
}

func (m *MockResourceService) Create(ctx context.Context, draft entities.ResourceDraft) (int64, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResourceService) Recommend(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockResourceService) AddReview(ctx context.Context, resourceID int64, text string, authorID int64) (int64, error) {
	args := m.Called(ctx, resourceID, text, authorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResourceService) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]entities.ResourceDistance, error) {
	args := m.Called(ctx, lat, lon, radiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.ResourceDistance), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, creds services.Credentials) (int64, string, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(int64), args.String(1), args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, creds services.Credentials, previousToken string) (*services.LoginResult, error) {
	args := m.Called(ctx, creds, previousToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

func (m *MockAuthService) CurrentUser(ctx context.Context, userID int64, authenticated bool) (string, error) {
	args := m.Called(ctx, userID, authenticated)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}
