package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/config"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/events"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/gpio"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/hardware"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/logger"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/service"
)

// ReaderHandle wraps the NFC reader with shutdown capability.
type ReaderHandle struct {
	hardware.ReaderPort
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ReaderHandle) Shutdown() error {
	h.cancel()
	return h.StopDetection()
}

// ProvideReader provides the NFC reader and bridges its callbacks into the
// association service. A missing PN532 degrades the box instead of failing
// boot; the API still serves and detection can be retried by restarting.
func ProvideReader(i do.Injector) (*ReaderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	association := do.MustInvoke[*service.AssociationService](i)

	var reader hardware.ReaderPort
	if cfg.Hardware.Mock {
		reader = hardware.NewMockReader()
		log.Info("Using mock NFC reader")
	} else {
		reader = hardware.NewPN532Reader(hardware.PN532Config{
			PortName:     cfg.Hardware.SerialPort,
			BaudRate:     cfg.Hardware.BaudRate,
			PollInterval: cfg.Hardware.PollInterval,
		}, log.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())

	reader.OnTagDetected(func(identifier domain.TagIdentifier) {
		if _, err := association.ProcessDetection(ctx, identifier, ""); err != nil {
			log.Error("Detection routing failed", "tag_id", identifier, "error", err)
		}
	})
	reader.OnTagRemoved(func(identifier domain.TagIdentifier) {
		association.HandleTagRemoved(identifier)
	})

	if err := reader.StartDetection(ctx); err != nil {
		log.Warn("NFC reader unavailable, running without detection", "error", err)
	} else {
		log.Info("NFC detection started")
	}

	return &ReaderHandle{ReaderPort: reader, cancel: cancel}, nil
}

// StatusLedHandle wraps the status LED with shutdown capability. The LED is
// optional; a nil led turns every call into a no-op.
type StatusLedHandle struct {
	led         *gpio.StatusLed
	unsubscribe func()
}

// Shutdown implements do.Shutdownable.
func (h *StatusLedHandle) Shutdown() error {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	if h.led == nil {
		return nil
	}
	return h.led.Close()
}

// ProvideStatusLed provides the GPIO status LED, driven by domain events:
// steady while a session is listening, a blink on each tag detection.
func ProvideStatusLed(i do.Injector) (*StatusLedHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Led.Enabled {
		return &StatusLedHandle{}, nil
	}

	publisher := do.MustInvoke[*events.Publisher](i)
	association := do.MustInvoke[*service.AssociationService](i)

	led := gpio.NewStatusLed(cfg.Led.Pin, log.Logger)

	syncListening := func(events.Event) {
		led.SetListening(len(association.GetActiveSessions()) > 0)
	}
	unsubscribes := []func(){
		publisher.Subscribe(events.EventTagDetected, func(events.Event) { led.Blink() }),
		publisher.Subscribe(events.EventSessionStarted, syncListening),
		publisher.Subscribe(events.EventSessionCompleted, syncListening),
		publisher.Subscribe(events.EventSessionExpired, syncListening),
	}
	unsubscribe := func() {
		for _, fn := range unsubscribes {
			fn()
		}
	}

	log.Info("Status LED enabled", "pin", cfg.Led.Pin)

	return &StatusLedHandle{led: led, unsubscribe: unsubscribe}, nil
}
