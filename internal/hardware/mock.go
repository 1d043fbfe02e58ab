package hardware

import (
	"context"
	"sync"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
)

// MockReader is an in-process ReaderPort for development machines without a
// PN532 and for tests. Tags are injected programmatically.
type MockReader struct {
	mu         sync.Mutex
	detecting  bool
	currentTag domain.TagIdentifier
	onDetected TagDetectedFunc
	onRemoved  TagRemovedFunc
}

var _ ReaderPort = (*MockReader)(nil)

// NewMockReader creates an idle mock reader.
func NewMockReader() *MockReader {
	return &MockReader{}
}

// StartDetection marks the reader as detecting.
func (m *MockReader) StartDetection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detecting = true
	return nil
}

// StopDetection marks the reader as idle.
func (m *MockReader) StopDetection() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detecting = false
	m.currentTag = ""
	return nil
}

// IsDetecting reports whether detection is running.
func (m *MockReader) IsDetecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detecting
}

// OnTagDetected registers the detection callback.
func (m *MockReader) OnTagDetected(fn TagDetectedFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDetected = fn
}

// OnTagRemoved registers the removal callback.
func (m *MockReader) OnTagRemoved(fn TagRemovedFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemoved = fn
}

// Status returns a snapshot of the mock state.
func (m *MockReader) Status() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := map[string]any{
		"type":      "mock",
		"detecting": m.detecting,
	}
	if m.currentTag != "" {
		status["current_tag"] = m.currentTag.String()
	}
	return status
}

// InjectTag simulates a tag entering the field. Fails when detection is not
// running, mirroring the real reader which only reports while polling.
func (m *MockReader) InjectTag(identifier domain.TagIdentifier) error {
	m.mu.Lock()
	if !m.detecting {
		m.mu.Unlock()
		return errors.HardwareUnavailable("mock reader is not detecting")
	}
	m.currentTag = identifier
	fn := m.onDetected
	m.mu.Unlock()

	if fn != nil {
		fn(identifier)
	}
	return nil
}

// RemoveTag simulates the current tag leaving the field.
func (m *MockReader) RemoveTag() {
	m.mu.Lock()
	removed := m.currentTag
	m.currentTag = ""
	fn := m.onRemoved
	m.mu.Unlock()

	if removed != "" && fn != nil {
		fn(removed)
	}
}
