package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule_Metadata(t *testing.T) {
	m := NewModule(DefaultConfig(), &mockLogger{})

	assert.Equal(t, "chat", m.Name())
	assert.ElementsMatch(t, []string{"auth", "marketplace"}, m.Dependencies())
	require.Len(t, m.EmitEvents(), 1)
}

func TestModule_StartRequiresDependencies(t *testing.T) {
	m := NewModule(DefaultConfig(), &mockLogger{})

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth dependency not set")
	assert.False(t, m.Health(context.Background()).Healthy)
	assert.NoError(t, m.Stop(context.Background()))
}

func TestModule_ServeBeforeStartClosesTransport(t *testing.T) {
	m := NewModule(DefaultConfig(), &mockLogger{})
	tr := newFakeTransport()

	m.Serve(tr, "7", "token")

	assert.True(t, tr.closed.Load())
}

func TestModule_MessageSentWithoutBus(t *testing.T) {
	m := NewModule(DefaultConfig(), &mockLogger{})
	assert.NoError(t, m.MessageSent(context.Background(), eventFixture()))
}

func startedModule(f *chatFixture) *Module {
	m := NewModule(DefaultConfig(), &mockLogger{})
	m.service = f.svc
	m.baseCtx, m.cancel = context.WithCancel(context.Background())
	return m
}

func TestModule_StopClosesLiveChannels(t *testing.T) {
	f := newChatFixture(t)
	m := startedModule(f)

	tr := newFakeTransport()
	served := make(chan struct{})
	go func() {
		m.Serve(tr, "7", "buyer-token")
		close(served)
	}()
	require.Eventually(t, func() bool {
		return len(f.svc.Registry().ConnectionsFor(listingBike, buyerID)) == 1
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))

	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Stop")
	}
	assert.True(t, tr.closed.Load())
	listings, conns := f.svc.Registry().Stats()
	assert.Zero(t, listings)
	assert.Zero(t, conns)
}

func TestModule_ServeAfterStopClosesTransport(t *testing.T) {
	f := newChatFixture(t)
	m := startedModule(f)
	require.NoError(t, m.Stop(context.Background()))

	tr := newFakeTransport()
	m.Serve(tr, "7", "buyer-token")

	assert.True(t, tr.closed.Load())
	assert.Empty(t, tr.frames())
	_, conns := f.svc.Registry().Stats()
	assert.Zero(t, conns)
}
