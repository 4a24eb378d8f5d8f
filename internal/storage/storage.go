// Package storage selects and opens the attempt store named in the config.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/primer/internal/config"
	"github.com/felixgeelhaar/primer/internal/progress"
	"github.com/felixgeelhaar/primer/internal/storage/local"
	"github.com/felixgeelhaar/primer/internal/storage/postgres"
	"github.com/felixgeelhaar/primer/internal/storage/sqlite"
)

// Store is an attempt store plus the function that releases it
type Store struct {
	progress.AttemptStore
	close func() error
}

// Close releases the underlying connection or pool
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open opens the store for cfg.Storage.Driver. Relative default paths are
// placed under primerDir.
func Open(ctx context.Context, cfg *config.LocalConfig, primerDir string) (*Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		path := cfg.StoragePath(primerDir)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		slog.Info("opened attempt store", "driver", cfg.Storage.Driver, "path", path)
		return &Store{AttemptStore: sqlite.NewAttemptStore(db), close: db.Close}, nil

	case config.DriverLocal:
		path := cfg.StoragePath(primerDir)
		store, err := local.NewAttemptStore(path)
		if err != nil {
			return nil, err
		}
		slog.Info("opened attempt store", "driver", cfg.Storage.Driver, "path", path)
		return &Store{AttemptStore: store}, nil

	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := postgres.NewAttemptStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		slog.Info("opened attempt store", "driver", cfg.Storage.Driver)
		return &Store{AttemptStore: store, close: func() error {
			pool.Close()
			return nil
		}}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
