// Package category manages the complaint categories shown to citizens.
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/storage"
)

type Service struct {
	Store storage.Storage
}

func NewService(s storage.Storage) *Service {
	return &Service{Store: s}
}

// Input carries the editable fields. Nil pointers leave a field unchanged on
// Update.
type Input struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
	IsActive    *bool   `json:"isActive"`
	SortOrder   *int    `json:"sortOrder"`
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	return s.Store.ListCategories(ctx, activeOnly)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Category, error) {
	return s.Store.GetCategory(ctx, id)
}

func cleanName(name *string) (string, error) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return "", errs.Invalid("name", "name is required")
	}
	n := strings.TrimSpace(*name)
	if len([]rune(n)) > 100 {
		return "", errs.Invalid("name", "name must be at most 100 characters")
	}
	return n, nil
}

func (s *Service) ensureUniqueName(ctx context.Context, name, selfID string) error {
	existing, err := s.Store.GetCategoryByName(ctx, name)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return fmt.Errorf("category %q %w", name, errs.ErrDuplicate)
	}
	return nil
}

func apply(c *models.Category, in Input) {
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.Color != nil {
		c.Color = *in.Color
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Category, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}
	c := &models.Category{Name: name, IsActive: true}
	apply(c, in)
	if err := s.Store.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*models.Category, error) {
	c, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name, err := cleanName(in.Name)
		if err != nil {
			return nil, err
		}
		if name != c.Name {
			if err := s.ensureUniqueName(ctx, name, c.ID); err != nil {
				return nil, err
			}
		}
		c.Name = name
	}
	apply(c, in)
	if err := s.Store.SaveCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("save category %s: %w", id, err)
	}
	return c, nil
}

// DeleteResult tells the caller whether the category was removed or only
// deactivated because complaints still reference it.
type DeleteResult struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}

func (s *Service) Delete(ctx context.Context, id string) (DeleteResult, error) {
	c, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	n, err := s.Store.CountComplaintsInCategory(ctx, c.ID, c.Name)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("count complaints in %s: %w", c.Name, err)
	}
	if n > 0 {
		c.IsActive = false
		if err := s.Store.SaveCategory(ctx, c); err != nil {
			return DeleteResult{}, fmt.Errorf("deactivate category %s: %w", id, err)
		}
		slog.Info("category deactivated", "id", id, "name", c.Name, "complaints", n)
		return DeleteResult{Deactivated: true}, nil
	}
	if err := s.Store.DeleteCategory(ctx, id); err != nil {
		return DeleteResult{}, fmt.Errorf("delete category %s: %w", id, err)
	}
	return DeleteResult{Deleted: true}, nil
}

// SeedDefaults creates the report categories that are missing and returns
// how many were added.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	added := 0
	for i, name := range config.ReportCategories {
		_, err := s.Store.GetCategoryByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return added, err
		}
		c := &models.Category{Name: name, IsActive: true, SortOrder: i}
		if err := s.Store.CreateCategory(ctx, c); err != nil {
			return added, fmt.Errorf("seed category %q: %w", name, err)
		}
		added++
	}
	return added, nil
}
