// Package backend selects and opens the configured data store.
package backend

import (
	"fmt"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/finance"
	"fintrack/internal/log"
	"fintrack/internal/memory"
	"fintrack/internal/storage"
)

// Store is the full persistence surface the application needs. Both
// the SQLite repository and the in-memory store satisfy it.
type Store interface {
	finance.CategoryStore
	finance.TransactionStore
	auth.UserStore
	Close() error
}

func Open(cfg *config.Config, logger *log.Logger) (Store, error) {
	backendLogger := logger.WithComponent(log.ComponentBackend)

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		backendLogger.Info("Opened SQLite backend", "path", cfg.SQLiteDBPath)
		return repo, nil

	case "memory":
		backendLogger.Warn("Using in-memory backend, data will not survive restarts")
		return memory.NewStore(), nil

	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
