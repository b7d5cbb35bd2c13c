// Package storage persists users, complaints and categories. Two backends
// implement Storage: Postgres through gorm and MongoDB.
package storage

import (
	"context"

	"civicdesk/backend/internal/models"
)

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	// SaveComplaint writes the scalar fields of c and appends history and
	// comment entries that are not stored yet. It is the single write path
	// for an existing complaint.
	SaveComplaint(ctx context.Context, c *models.Complaint) error
	ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int64, error)
	// AllComplaints returns every complaint with its history, for reporting.
	AllComplaints(ctx context.Context) ([]models.Complaint, error)
	// MapComplaints returns the newest complaints inside b (nil = anywhere).
	MapComplaints(ctx context.Context, b *models.Bounds, limit int) ([]models.Complaint, error)
	CountComplaintsInCategory(ctx context.Context, id, name string) (int64, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ListUsers returns users with any of roles, all users when roles is empty.
	ListUsers(ctx context.Context, roles ...models.Role) ([]models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error)
	SaveCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

type Storage interface {
	ComplaintStore
	UserStore
	CategoryStore

	Ping(ctx context.Context) error
	Close() error
}

// MaxListLimit caps the page size of ListComplaints.
const MaxListLimit = 100

func normalizeFilter(f models.ComplaintFilter) models.ComplaintFilter {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Page < 1 {
		f.Page = 1
	}
	return f
}
