// Package di provides dependency injection configuration for the GoodBooks API.
package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/listenupapp/goodbooks-api/internal/config"
	"github.com/listenupapp/goodbooks-api/internal/di/providers"
	"github.com/listenupapp/goodbooks-api/internal/logger"
	"github.com/listenupapp/goodbooks-api/internal/metrics"
	"github.com/listenupapp/goodbooks-api/internal/service"
	"github.com/listenupapp/goodbooks-api/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
// configPath may be empty, in which case ./config.yaml is used when present.
func NewContainer(configPath string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig(configPath))
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideMetrics)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Business services
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideRatingService)
	do.Provide(injector, providers.ProvideReadingListService)

	// Server
	do.Provide(injector, providers.ProvideLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// BootstrapData initializes the configuration, store and search layers without
// starting the HTTP server. Used by the ingest tool.
func BootstrapData(injector *do.RootScope) error {
	if err := invoke[*config.Config](injector); err != nil {
		return err
	}
	if err := invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if err := invoke[*validation.Validator](injector); err != nil {
		return err
	}
	if err := invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if err := invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	return invoke[*service.SearchService](injector)
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if err := BootstrapData(injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*metrics.Metrics](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.RatingService](injector)
	_ = do.MustInvoke[*service.ReadingListService](injector)

	if err := invoke[*providers.LimiterHandle](injector); err != nil {
		return err
	}
	if err := invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}

func invoke[T any](injector *do.RootScope) error {
	if _, err := do.Invoke[T](injector); err != nil {
		return fmt.Errorf("initialize %T: %w", *new(T), err)
	}
	return nil
}
