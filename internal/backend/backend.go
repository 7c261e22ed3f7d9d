// Package backend selects the persistence layer from configuration so the
// server and the export worker share one wiring path.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/Ezzerof/expense-tracker/internal/config"
	"github.com/Ezzerof/expense-tracker/internal/storage"
	"github.com/Ezzerof/expense-tracker/internal/store"
	"github.com/Ezzerof/expense-tracker/internal/store/memory"
)

// DataStore bundles the ports every process needs from persistence.
type DataStore interface {
	store.TransactionStore
	store.SavingsStore
	store.UserStore
}

// CleanupFunc releases backend resources. It may be nil.
type CleanupFunc func() error

// Open creates the store named by cfg.DataBackend.
func Open(cfg *config.Config, logger *slog.Logger) (DataStore, CleanupFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize sqlite repository: %w", err)
		}
		logger.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return repo, repo.Close, nil
	case "memory":
		logger.Info("Initialized memory backend")
		return memory.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
