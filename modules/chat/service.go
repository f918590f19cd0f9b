package chat

import (
	"context"
	"time"

	domain "github.com/example/marketplace-chat/domain/chat"
	"github.com/example/marketplace-chat/events"
	"github.com/go-monolith/mono/pkg/types"
)

// MessageStore persists chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, senderID, receiverID, listingID int64, text string) (*domain.Message, error)
}

// Notifier is told about every persisted message.
type Notifier interface {
	MessageSent(ctx context.Context, event events.MessageSentEvent) error
}

// Config tunes chat sessions.
type Config struct {
	// WriteTimeout bounds a single write to one connection.
	WriteTimeout time.Duration
	// StoreTimeout bounds persisting one message.
	StoreTimeout time.Duration
	// MaxMessageLength caps message text in runes. Zero disables the cap.
	MaxMessageLength int
}

// DefaultConfig returns the default session settings.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:     10 * time.Second,
		StoreTimeout:     5 * time.Second,
		MaxMessageLength: 5000,
	}
}

// Service runs chat sessions against shared collaborators.
type Service struct {
	cfg        Config
	registry   *Registry
	dispatcher *Dispatcher
	gate       *AuthGate
	policy     *AccessPolicy
	store      MessageStore
	notifier   Notifier
	logger     types.Logger
}

// Deps are the collaborators of a Service. Notifier may be nil.
type Deps struct {
	Registry   *Registry
	Identities IdentityResolver
	Listings   ListingDirectory
	Store      MessageStore
	Notifier   Notifier
}

// NewService assembles a Service.
func NewService(cfg Config, deps Deps, logger types.Logger) *Service {
	registry := deps.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		cfg:        cfg,
		registry:   registry,
		dispatcher: NewDispatcher(registry, logger),
		gate:       NewAuthGate(deps.Identities),
		policy:     NewAccessPolicy(deps.Listings),
		store:      deps.Store,
		notifier:   deps.Notifier,
		logger:     logger,
	}
}

// Registry returns the connection registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Dispatcher returns the fan-out dispatcher.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Serve runs one channel to completion. It returns when the client
// disconnects, the transport fails, admission is refused or ctx is cancelled
// and the transport closed. The final state is always StateClosed.
func (s *Service) Serve(ctx context.Context, t Transport, listingParam, token string) *Session {
	sess := newSession(s, t)
	sess.run(ctx, listingParam, token)
	return sess
}
