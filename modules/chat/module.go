package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/marketplace-chat/events"
	"github.com/example/marketplace-chat/modules/auth"
	"github.com/example/marketplace-chat/modules/marketplace"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

// Module hosts live chat channels. It resolves identities through the auth
// module, reads listings and stores messages through the marketplace module,
// and emits a MessageSent event for every persisted message.
type Module struct {
	cfg Config

	authAdapter        *auth.AuthAdapter
	marketplaceAdapter *marketplace.MarketplaceAdapter
	eventBus           mono.EventBus

	service *Service
	baseCtx context.Context
	cancel  context.CancelFunc
	logger  types.Logger

	// mu guards stopping so Serve never adds to active once Stop has begun.
	mu       sync.Mutex
	stopping bool
	active   sync.WaitGroup
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ Notifier                   = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule(cfg Config, logger types.Logger) *Module {
	return &Module{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// Dependencies returns the modules chat talks to.
func (m *Module) Dependencies() []string {
	return []string{"auth", "marketplace"}
}

// SetDependencyServiceContainer receives the service containers of dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authAdapter = auth.NewAuthAdapter(container)
	case "marketplace":
		m.marketplaceAdapter = marketplace.NewMarketplaceAdapter(container)
	}
}

// SetEventBus receives the event bus.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
	}
}

// Start builds the chat service on top of the dependency adapters.
func (m *Module) Start(_ context.Context) error {
	if m.authAdapter == nil {
		return errors.New("auth dependency not set")
	}
	if m.marketplaceAdapter == nil {
		return errors.New("marketplace dependency not set")
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	service := NewService(m.cfg, Deps{
		Identities: m.authAdapter,
		Listings:   m.marketplaceAdapter,
		Store:      m.marketplaceAdapter,
		Notifier:   m,
	}, m.logger)

	m.mu.Lock()
	m.baseCtx, m.cancel = baseCtx, cancel
	m.service = service
	m.stopping = false
	m.mu.Unlock()

	m.logger.Info("Chat module started",
		"writeTimeout", m.cfg.WriteTimeout, "maxMessageLength", m.cfg.MaxMessageLength)
	return nil
}

// Stop closes every live channel and waits for their sessions to finish.
func (m *Module) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopping = true
	m.mu.Unlock()

	if m.service == nil {
		return nil
	}
	m.cancel()
	closed := m.service.Registry().CloseAll(websocket.CloseGoingAway, "server shutting down")

	done := make(chan struct{})
	go func() {
		m.active.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Chat sessions did not finish before shutdown deadline")
	}

	m.logger.Info("Chat module stopped", "closedConnections", closed)
	return nil
}

// Health reports live channel counts.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	listings, conns := m.service.Registry().Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"listings":    listings,
			"connections": conns,
		},
	}
}

// Serve runs one websocket channel until it closes. Channels arriving
// before Start or after Stop are closed straight away.
func (m *Module) Serve(t Transport, listingParam, token string) {
	m.mu.Lock()
	if m.service == nil || m.stopping {
		m.mu.Unlock()
		_ = t.Close()
		return
	}
	m.active.Add(1)
	m.mu.Unlock()
	defer m.active.Done()
	m.service.Serve(m.baseCtx, t, listingParam, token)
}

// Service returns the underlying chat service.
func (m *Module) Service() *Service {
	return m.service
}

// MessageSent publishes a MessageSent event.
func (m *Module) MessageSent(_ context.Context, event events.MessageSentEvent) error {
	if m.eventBus == nil {
		return nil
	}
	if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
		return fmt.Errorf("failed to publish MessageSent: %w", err)
	}
	return nil
}
