// Package stats answers the read-only dashboard reports. Results may be
// cached for a short TTL; every complaint write drops the cache.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/storage"
)

// Cache is the subset of storage.RedisCache used here.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Flush(ctx context.Context) error
}

type Service struct {
	Store storage.Storage
	Cache Cache
	TTL   time.Duration
	// DynamicCategories reports on active store categories instead of
	// config.ReportCategories.
	DynamicCategories bool
	Now               func() time.Time
}

func NewService(store storage.Storage, cache Cache, ttl time.Duration) *Service {
	return &Service{
		Store: store,
		Cache: cache,
		TTL:   ttl,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// cached runs compute on a miss and stores its result. Cache errors only
// cost the cache.
func cached[T any](ctx context.Context, s *Service, key string, compute func() (T, error)) (T, error) {
	var v T
	if s.Cache != nil {
		hit, err := s.Cache.Get(ctx, key, &v)
		if err != nil {
			slog.Warn("stats cache read failed", "key", key, "err", err)
		} else if hit {
			return v, nil
		}
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, v, s.TTL); err != nil {
			slog.Warn("stats cache write failed", "key", key, "err", err)
		}
	}
	return v, nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Flush(ctx); err != nil {
		slog.Warn("stats cache flush failed", "err", err)
	}
}

func (s *Service) Summary(ctx context.Context) (models.Summary, error) {
	return cached(ctx, s, "summary", func() (models.Summary, error) {
		list, err := s.Store.AllComplaints(ctx)
		if err != nil {
			return models.Summary{}, fmt.Errorf("load complaints: %w", err)
		}
		return Summarize(list), nil
	})
}

func (s *Service) ByCategory(ctx context.Context) ([]models.CategoryStat, error) {
	return cached(ctx, s, "by-category", func() ([]models.CategoryStat, error) {
		names, err := s.categoryNames(ctx)
		if err != nil {
			return nil, err
		}
		list, err := s.Store.AllComplaints(ctx)
		if err != nil {
			return nil, fmt.Errorf("load complaints: %w", err)
		}
		return ByCategory(list, names), nil
	})
}

func (s *Service) categoryNames(ctx context.Context) ([]string, error) {
	if !s.DynamicCategories {
		return config.ReportCategories, nil
	}
	cats, err := s.Store.ListCategories(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Service) TimeSeries(ctx context.Context) ([]models.MonthPoint, error) {
	now := s.Now()
	key := "time-series:" + now.UTC().Format("2006-01")
	return cached(ctx, s, key, func() ([]models.MonthPoint, error) {
		list, err := s.Store.AllComplaints(ctx)
		if err != nil {
			return nil, fmt.Errorf("load complaints: %w", err)
		}
		return TimeSeries(list, now, config.TimeSeriesMonths), nil
	})
}

// MapData returns at most config.MapDataLimit points, newest first.
func (s *Service) MapData(ctx context.Context, b *models.Bounds) ([]models.MapPoint, error) {
	key := "map-data:all"
	if b != nil {
		key = fmt.Sprintf("map-data:%g:%g:%g:%g", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}
	return cached(ctx, s, key, func() ([]models.MapPoint, error) {
		list, err := s.Store.MapComplaints(ctx, b, config.MapDataLimit)
		if err != nil {
			return nil, fmt.Errorf("load map complaints: %w", err)
		}
		if len(list) > config.MapDataLimit {
			list = list[:config.MapDataLimit]
		}
		return MapPoints(list), nil
	})
}
