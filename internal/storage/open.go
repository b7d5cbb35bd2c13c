package storage

import (
	"context"
	"fmt"

	"civicdesk/backend/internal/config"
)

// Open connects the backend chosen by cfg.StoreDriver. With migrate set it
// also brings the schema (Postgres) or indexes (Mongo) up to date.
func Open(ctx context.Context, cfg *config.Config, migrate bool) (Storage, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		s, err := OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := s.EnsureIndexes(ctx); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("mongo indexes: %w", err)
			}
		}
		return s, nil
	case config.DriverPostgres:
		s, err := OpenPostgres(cfg.DSN())
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := s.Migrate(); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
