// Package main provides the entry point for the music box server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/di"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/di/providers"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	// Shutdown all services in reverse order. The DI container handles
	// shutdown order automatically.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// Wrapper handles close their resources explicitly.
	if storeHandle, err := do.Invoke[*providers.TagStoreHandle](injector); err == nil {
		if err := storeHandle.Shutdown(); err != nil {
			log.Error("Failed to close tag store", "error", err)
		}
	}
	if catalogHandle, err := do.Invoke[*providers.CatalogHandle](injector); err == nil {
		if err := catalogHandle.Shutdown(); err != nil {
			log.Error("Failed to close catalog", "error", err)
		}
	}

	log.Info("Goodbye")
}
