// Package storagemock provides a testify mock of storage.Storage.
package storagemock

import (
	"context"

	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*models.Complaint)
	return c, args.Error(1)
}

func (m *MockStorage) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int64, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]models.Complaint)
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *MockStorage) AllComplaints(ctx context.Context) ([]models.Complaint, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]models.Complaint)
	return list, args.Error(1)
}

func (m *MockStorage) MapComplaints(ctx context.Context, b *models.Bounds, limit int) ([]models.Complaint, error) {
	args := m.Called(ctx, b, limit)
	list, _ := args.Get(0).([]models.Complaint)
	return list, args.Error(1)
}

func (m *MockStorage) CountComplaintsInCategory(ctx context.Context, id, name string) (int64, error) {
	args := m.Called(ctx, id, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CreateUser(ctx context.Context, u *models.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockStorage) ListUsers(ctx context.Context, roles ...models.Role) ([]models.User, error) {
	args := m.Called(ctx, roles)
	list, _ := args.Get(0).([]models.User)
	return list, args.Error(1)
}

func (m *MockStorage) SaveUser(ctx context.Context, u *models.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStorage) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) CreateCategory(ctx context.Context, c *models.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*models.Category)
	return c, args.Error(1)
}

func (m *MockStorage) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	args := m.Called(ctx, name)
	c, _ := args.Get(0).(*models.Category)
	return c, args.Error(1)
}

func (m *MockStorage) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	args := m.Called(ctx, activeOnly)
	list, _ := args.Get(0).([]models.Category)
	return list, args.Error(1)
}

func (m *MockStorage) SaveCategory(ctx context.Context, c *models.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) DeleteCategory(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}
