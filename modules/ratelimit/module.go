package ratelimit

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Module owns the Redis client backing the HTTP rate limiter. With an empty
// address it runs disabled and its middleware passes everything through.
type Module struct {
	addr     string
	password string
	config   Config
	client   *redis.Client
	limiter  *SlidingWindowLimiter
	logger   types.Logger
}

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new rate limiting module.
func NewModule(addr, password string, config Config, logger types.Logger) *Module {
	return &Module{
		addr:     addr,
		password: password,
		config:   config,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rate-limiter"
}

// Start connects to Redis.
func (m *Module) Start(ctx context.Context) error {
	if m.addr == "" {
		m.logger.Info("Rate limiter disabled, no Redis address configured")
		return nil
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:     m.addr,
		Password: m.password,
	})
	if err := m.client.Ping(ctx).Err(); err != nil {
		_ = m.client.Close()
		m.client = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.limiter = NewSlidingWindowLimiter(m.client, m.config)
	m.logger.Info("Rate limiter started", "addr", m.addr,
		"requests", m.config.RequestsPerWindow, "window", m.config.WindowSize)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Warn("Error closing Redis connection", "error", err)
		}
		m.client = nil
		m.limiter = nil
	}
	m.logger.Info("Rate limiter stopped")
	return nil
}

// Health pings Redis when enabled.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.addr == "" {
		return mono.HealthStatus{Healthy: true, Message: "disabled"}
	}
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "not connected"}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: err.Error()}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// Handler returns the rate limiting middleware. keyFn may be nil.
func (m *Module) Handler(keyFn KeyFunc) fiber.Handler {
	var limiter Limiter
	if m.limiter != nil {
		limiter = m.limiter
	}
	return Middleware(limiter, m.config.RequestsPerWindow, keyFn, m.logger)
}
