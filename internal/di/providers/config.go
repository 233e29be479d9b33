// Package providers contains dependency injection providers for the GoodBooks API.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/goodbooks-api/internal/config"
	"github.com/listenupapp/goodbooks-api/internal/logger"
	"github.com/listenupapp/goodbooks-api/internal/validation"
)

// ProvideConfig provides the application configuration read from path (optional).
func ProvideConfig(path string) func(do.Injector) (*config.Config, error) {
	return func(do.Injector) (*config.Config, error) {
		return config.Load(path)
	}
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting GoodBooks API",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"store_driver", cfg.Store.Driver,
		"store_path", cfg.Store.Path,
	)

	return log, nil
}

// ProvideValidator provides the record and request validator.
func ProvideValidator(do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
