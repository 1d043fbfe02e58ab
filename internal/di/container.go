// Package di provides dependency injection configuration for the music box.
package di

import (
	"github.com/samber/do/v2"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/config"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/di/providers"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/events"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/logger"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Events and persistence
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvidePublisher)
	do.Provide(injector, providers.ProvideTagStore)
	do.Provide(injector, providers.ProvideCatalog)

	// Business services
	do.Provide(injector, providers.ProvideAssociationService)
	do.Provide(injector, providers.ProvideSessionSweeper)

	// Hardware
	do.Provide(injector, providers.ProvideReader)
	do.Provide(injector, providers.ProvideStatusLed)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle
// management. This triggers lazy initialization of the whole graph.
func Bootstrap(injector *do.RootScope) error {
	invocations := []func() error{
		func() error { _, err := do.Invoke[*config.Config](injector); return err },
		func() error { _, err := do.Invoke[*logger.Logger](injector); return err },
		func() error { _, err := do.Invoke[*providers.SSEManagerHandle](injector); return err },
		func() error { _, err := do.Invoke[*events.Publisher](injector); return err },
		func() error { _, err := do.Invoke[*providers.TagStoreHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.CatalogHandle](injector); return err },
		func() error { _, err := do.Invoke[*service.AssociationService](injector); return err },
		func() error { _, err := do.Invoke[*providers.SessionSweeperHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.ReaderHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.StatusLedHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.HTTPServerHandle](injector); return err },
	}
	for _, invoke := range invocations {
		if err := invoke(); err != nil {
			return err
		}
	}
	return nil
}
