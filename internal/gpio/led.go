// Package gpio drives the status LED on the music box enclosure. The LED
// gives scan feedback without a screen: steady while a link session is
// listening, a short blink on every detection.
package gpio

import (
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// blinkDuration is how long the detection blink lasts.
const blinkDuration = 150 * time.Millisecond

// StatusLed wraps one GPIO line. A nil pin makes every method a no-op, so
// the rest of the system never needs to know whether a Pi is present.
type StatusLed struct {
	logger *slog.Logger

	mu     sync.Mutex
	pin    gpio.PinIO
	steady bool
	timer  *time.Timer
}

// NewStatusLed initializes the periph host and resolves the pin by name
// (e.g. "GPIO17"). Initialization failure is logged and yields a no-op LED
// rather than an error: missing hardware must not stop the service.
func NewStatusLed(pinName string, logger *slog.Logger) *StatusLed {
	led := &StatusLed{logger: logger}

	if _, err := host.Init(); err != nil {
		logger.Warn("GPIO host init failed, status LED disabled", "error", err)
		return led
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		logger.Warn("GPIO pin not found, status LED disabled", "pin", pinName)
		return led
	}
	if err := pin.Out(gpio.Low); err != nil {
		logger.Warn("GPIO pin unusable, status LED disabled", "pin", pinName, "error", err)
		return led
	}

	led.pin = pin
	logger.Info("Status LED ready", "pin", pinName)
	return led
}

// SetListening turns the LED steady on or off, tracking whether any link
// session is waiting for a tag.
func (l *StatusLed) SetListening(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pin == nil {
		return
	}
	l.steady = on
	l.applyLocked()
}

// Blink flashes the LED briefly, then restores the steady state.
func (l *StatusLed) Blink() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pin == nil {
		return
	}

	_ = l.pin.Out(gpio.High)
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(blinkDuration, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.applyLocked()
	})
}

// Close turns the LED off.
func (l *StatusLed) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pin == nil {
		return nil
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.steady = false
	return l.pin.Out(gpio.Low)
}

func (l *StatusLed) applyLocked() {
	level := gpio.Low
	if l.steady {
		level = gpio.High
	}
	if err := l.pin.Out(level); err != nil {
		l.logger.Warn("Failed to drive status LED", "error", err)
	}
}
