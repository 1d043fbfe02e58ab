package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/config"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/events"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/logger"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/service"
)

// ProvideAssociationService provides the NFC association orchestrator.
func ProvideAssociationService(i do.Injector) (*service.AssociationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	tagStore := do.MustInvoke[*TagStoreHandle](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	publisher := do.MustInvoke[*events.Publisher](i)

	svc := service.NewAssociationService(
		tagStore.Store,
		catalogHandle.Catalog,
		publisher,
		log.Logger,
		service.Options{
			SessionTimeout: cfg.Nfc.SessionTimeout,
			SuccessGrace:   cfg.Nfc.SuccessGrace,
		},
	)

	return svc, nil
}

// SessionSweeperHandle runs the expired-session sweep until shutdown.
type SessionSweeperHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *SessionSweeperHandle) Shutdown() error {
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(shutdownTimeout):
	}
	return nil
}

// ProvideSessionSweeper provides the background job that times out expired
// association sessions. Expiry is cooperative, so a session can outlive its
// deadline by up to one sweep interval.
func ProvideSessionSweeper(i do.Injector) (*SessionSweeperHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	association := do.MustInvoke[*service.AssociationService](i)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Nfc.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := association.CleanupExpiredSessions(ctx); n > 0 {
					log.Debug("Expired sessions reaped", "count", n)
				}
			}
		}
	}()

	log.Info("Session sweeper started", "interval", cfg.Nfc.SweepInterval)

	return &SessionSweeperHandle{cancel: cancel, done: done}, nil
}
