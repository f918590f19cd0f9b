package interactions

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/example/marketplace-chat/domain/interaction"
	"github.com/example/marketplace-chat/events"
	"github.com/example/marketplace-chat/modules/marketplace"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Recorder stores interaction signals.
type Recorder interface {
	RecordInteraction(ctx context.Context, in interaction.ItemInteraction) (int64, error)
}

// Module turns buyer chat messages into message_seller interaction signals
// for the recommendation subsystem.
type Module struct {
	recorder Recorder
	recorded atomic.Int64
	failed   atomic.Int64
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new interactions module.
func NewModule(logger types.Logger) *Module {
	return &Module{logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "interactions"
}

// Dependencies returns the modules interactions talks to.
func (m *Module) Dependencies() []string {
	return []string{"marketplace"}
}

// SetDependencyServiceContainer wires the marketplace adapter as the recorder.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "marketplace" {
		m.recorder = marketplace.NewMarketplaceAdapter(container)
	}
}

// RegisterEventConsumers subscribes to MessageSent events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageSentV1, m.handleMessageSent, m); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	m.logger.Info("Registered event consumers", "events", []string{"MessageSent"})
	return nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Interactions module started")
	return nil
}

// Stop logs the final counters.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Interactions module stopped",
		"recorded", m.recorded.Load(), "failed", m.failed.Load())
	return nil
}

// Health reports whether a recorder is wired, with recorded and failed counts.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	message := "operational"
	if m.recorder == nil {
		message = "marketplace dependency not set"
	}
	return mono.HealthStatus{
		Healthy: m.recorder != nil,
		Message: message,
		Details: map[string]any{
			"recorded": m.recorded.Load(),
			"failed":   m.failed.Load(),
		},
	}
}

// handleMessageSent records a message_seller signal when a buyer writes to
// the seller. Seller replies carry no buyer intent and are skipped.
func (m *Module) handleMessageSent(ctx context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	if event.SenderID == event.SellerID || event.ReceiverID != event.SellerID {
		return nil
	}
	if m.recorder == nil {
		return errors.New("marketplace dependency not set")
	}

	buyerID := event.SenderID
	_, err := m.recorder.RecordInteraction(ctx, interaction.ItemInteraction{
		UserID:    &buyerID,
		ListingID: event.ListingID,
		Action:    interaction.ActionMessageSeller,
		Weight:    1,
	})
	if err != nil {
		m.failed.Add(1)
		m.logger.Error("Failed to record interaction",
			"listingID", event.ListingID, "userID", buyerID, "error", err)
		return err
	}
	m.recorded.Add(1)
	return nil
}
