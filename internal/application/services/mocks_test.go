package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/discoverhealth/backend/internal/domain/entities"
)

type MockResourceRepository struct {
	mock.Mock
}

func (m *MockResourceRepository) ListByRegion(ctx context.Context, region string) ([]*entities.Resource, error) {
	args := m.Called(ctx, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Resource), args.Error(1)
}

func (m *MockResourceRepository) Create(ctx context.Context, resource *entities.Resource) (int64, error) {
	args := m.Called(ctx, resource)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResourceRepository) Recommend(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockResourceRepository) AddReview(ctx context.Context, resourceID int64, text string, authorID int64) (int64, error) {
	args := m.Called(ctx, resourceID, text, authorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResourceRepository) GetByID(ctx context.Context, id int64) (*entities.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Resource), args.Error(1)
}

func (m *MockResourceRepository) ListAll(ctx context.Context) ([]*entities.Resource, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Resource), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*entities.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	args := m.Called(ctx, username, passwordHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) FindUsernameByID(ctx context.Context, id int64) (string, bool, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Bool(1), args.Error(2)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *entities.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, token string) (*entities.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	return m.Called(ctx, token, expiresAt).Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

// plainHasher stores passwords with a visible prefix so tests can assert hashing happened
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(stored, password string) bool { return stored == "hashed:"+password }
