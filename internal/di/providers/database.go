package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/goodbooks-api/internal/config"
	"github.com/listenupapp/goodbooks-api/internal/logger"
	"github.com/listenupapp/goodbooks-api/internal/store"
	"github.com/listenupapp/goodbooks-api/internal/store/sqlite"
	"github.com/listenupapp/goodbooks-api/internal/validation"
)

// StoreHandle wraps the configured store with shutdown capability.
type StoreHandle struct {
	store.Store
	Writer store.Writer

	// badger is set when the Badger backend is active; it takes the bleve index as
	// its text searcher. SQLite carries its own FTS5 index.
	badger *store.Badger
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// UsesTextIndex reports whether the store resolves q through the bleve index.
func (h *StoreHandle) UsesTextIndex() bool {
	return h.badger != nil
}

// ProvideStore provides the database store selected by store.driver.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	validator := do.MustInvoke[*validation.Validator](i)

	switch cfg.Store.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		db, err := sqlite.Open(cfg.Store.Path, log.Logger, sqlite.Options{
			Timeout:   cfg.Store.Timeout,
			Validator: validator,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
		return &StoreHandle{Store: db, Writer: db}, nil

	default:
		db, err := store.New(cfg.Store.Path, log.Logger, store.Options{
			Timeout:   cfg.Store.Timeout,
			Validator: validator,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
		return &StoreHandle{Store: db, Writer: db, badger: db}, nil
	}
}
