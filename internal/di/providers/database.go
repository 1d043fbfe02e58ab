package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/catalog"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/config"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/events"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/logger"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/sse"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/store"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// ProvidePublisher provides the domain event publisher, bridged to SSE so
// every domain event reaches connected clients.
func ProvidePublisher(i do.Injector) (*events.Publisher, error) {
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	publisher := events.NewPublisher(log.Logger)
	publisher.SubscribeAll(sseHandle.Emit)

	return publisher, nil
}

// TagStoreHandle wraps the tag store with shutdown capability.
type TagStoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *TagStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideTagStore provides the Badger-backed NFC tag store.
func ProvideTagStore(i do.Injector) (*TagStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.New(cfg.Data.TagDBPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Tag store opened", "path", cfg.Data.TagDBPath)

	return &TagStoreHandle{Store: db}, nil
}

// CatalogHandle wraps the playlist catalog with shutdown capability.
type CatalogHandle struct {
	catalog.Catalog
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	return h.Close()
}

// ProvideCatalog provides the SQLite playlist catalog.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cat, err := catalog.Open(cfg.Data.CatalogPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Catalog opened", "path", cfg.Data.CatalogPath)

	return &CatalogHandle{Catalog: cat}, nil
}
