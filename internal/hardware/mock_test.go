package hardware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/hardware"
)

func TestMockReader_Lifecycle(t *testing.T) {
	m := hardware.NewMockReader()
	assert.False(t, m.IsDetecting())

	require.NoError(t, m.StartDetection(context.Background()))
	assert.True(t, m.IsDetecting())

	require.NoError(t, m.StopDetection())
	assert.False(t, m.IsDetecting())
}

func TestMockReader_InjectTag(t *testing.T) {
	m := hardware.NewMockReader()

	var detected []domain.TagIdentifier
	m.OnTagDetected(func(id domain.TagIdentifier) { detected = append(detected, id) })

	// Detection must be running before tags can appear.
	err := m.InjectTag("04a1b2c3")
	require.ErrorIs(t, err, errors.ErrHardwareUnavailable)
	require.Empty(t, detected)

	require.NoError(t, m.StartDetection(context.Background()))
	require.NoError(t, m.InjectTag("04a1b2c3"))
	require.Equal(t, []domain.TagIdentifier{"04a1b2c3"}, detected)

	status := m.Status()
	assert.Equal(t, "04a1b2c3", status["current_tag"])
}

func TestMockReader_RemoveTag(t *testing.T) {
	m := hardware.NewMockReader()

	var removed []domain.TagIdentifier
	m.OnTagRemoved(func(id domain.TagIdentifier) { removed = append(removed, id) })

	require.NoError(t, m.StartDetection(context.Background()))

	// Removing with no tag present is a no-op.
	m.RemoveTag()
	assert.Empty(t, removed)

	require.NoError(t, m.InjectTag("04a1b2c3"))
	m.RemoveTag()
	assert.Equal(t, []domain.TagIdentifier{"04a1b2c3"}, removed)
}

func TestPN532Reader_UnavailablePort(t *testing.T) {
	r := hardware.NewPN532Reader(hardware.PN532Config{PortName: "/dev/does-not-exist"}, discardLogger())

	err := r.StartDetection(context.Background())
	require.ErrorIs(t, err, errors.ErrHardwareUnavailable)
	assert.False(t, r.IsDetecting())

	status := r.Status()
	assert.Equal(t, "pn532-uart", status["type"])
	assert.NotEmpty(t, status["last_error"])

	// Stopping a reader that never started is safe.
	require.NoError(t, r.StopDetection())
}
