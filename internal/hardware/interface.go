// Package hardware abstracts the physical NFC reader. The production
// implementation drives a PN532 board over UART; a mock stands in for it on
// development machines.
package hardware

import (
	"context"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
)

// TagDetectedFunc is invoked for every tag entering the reader field.
type TagDetectedFunc func(identifier domain.TagIdentifier)

// TagRemovedFunc is invoked when a tag leaves the reader field.
type TagRemovedFunc func(identifier domain.TagIdentifier)

// ReaderPort is the driven hardware port. Callbacks must be registered
// before StartDetection; they are invoked from the reader's polling
// goroutine and must not block.
type ReaderPort interface {
	// StartDetection opens the reader and begins polling for tags.
	// Fails with a hardware-unavailable error when the device cannot be
	// opened.
	StartDetection(ctx context.Context) error
	// StopDetection halts polling and releases the device.
	StopDetection() error
	// IsDetecting reports whether the polling loop is running.
	IsDetecting() bool

	OnTagDetected(fn TagDetectedFunc)
	OnTagRemoved(fn TagRemovedFunc)

	// Status returns a snapshot of the reader state for dashboards.
	Status() map[string]any
}
