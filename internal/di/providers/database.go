package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/shelfscout/shelfscout-server/internal/config"
	"github.com/shelfscout/shelfscout-server/internal/logger"
	"github.com/shelfscout/shelfscout-server/internal/store"
	"github.com/shelfscout/shelfscout-server/internal/store/sqlite"
)

// DBHandle wraps the SQLite store with shutdown capability.
type DBHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *DBHandle) Shutdown() error {
	return h.Close()
}

// ProvideDB provides the SQLite store for users, sessions, and libraries.
func ProvideDB(i do.Injector) (*DBHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "shelfscout.db")
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database opened", "path", dbPath)

	return &DBHandle{Store: db}, nil
}

// CacheHandle wraps the Badger recommendation cache with shutdown capability.
type CacheHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache provides the Badger recommendation cache.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cachePath := filepath.Join(cfg.Data.BasePath, "cache")
	cache, err := store.New(cachePath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Recommendation cache opened", "path", cachePath)

	return &CacheHandle{Store: cache}, nil
}
