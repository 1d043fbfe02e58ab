package sse_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/events"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/sse"
)

func newTestManager(t *testing.T) (*sse.Manager, context.CancelFunc) {
	t.Helper()

	m := sse.NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	return m, cancel
}

func TestManager_ConnectDisconnect(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	client, err := m.Connect()
	require.NoError(t, err)
	assert.NotEmpty(t, client.ID)
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(client.ID)
	assert.Zero(t, m.ClientCount())

	// Disconnecting twice is safe.
	m.Disconnect(client.ID)
}

func TestManager_EmitDeliversToClients(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	client, err := m.Connect()
	require.NoError(t, err)
	defer m.Disconnect(client.ID)

	m.Emit(events.NewTagRemovedEvent("04a1b2c3"))

	select {
	case event := <-client.EventChan:
		assert.Equal(t, events.EventTagRemoved, event.Type)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestManager_SlowClientDoesNotBlock(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	client, err := m.Connect()
	require.NoError(t, err)
	defer m.Disconnect(client.ID)

	// Never read from the client; overfill its buffer.
	for i := 0; i < 150; i++ {
		m.Emit(events.NewTagRemovedEvent("04a1b2c3"))
	}

	// The broadcast loop must stay responsive for a fresh client.
	fresh, err := m.Connect()
	require.NoError(t, err)
	defer m.Disconnect(fresh.ID)

	m.Emit(events.NewTagRemovedEvent("cafebabe"))

	require.Eventually(t, func() bool {
		select {
		case <-fresh.EventChan:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestManager_Shutdown(t *testing.T) {
	m := sse.NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)

	client, err := m.Connect()
	require.NoError(t, err)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	require.NoError(t, m.Shutdown(shutdownCtx))

	// Emitting after shutdown is a no-op, not a panic.
	m.Emit(events.NewTagRemovedEvent("04a1b2c3"))

	select {
	case <-client.Done:
	case <-time.After(time.Second):
		t.Fatal("client was not closed on shutdown")
	}
}
