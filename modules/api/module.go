package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/marketplace-chat/domain/user"
	"github.com/example/marketplace-chat/modules/auth"
	"github.com/example/marketplace-chat/modules/marketplace"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Config holds HTTP server settings.
type Config struct {
	Addr           string
	AllowedOrigins string
}

// APIModule is the HTTP and websocket front door.
type APIModule struct {
	cfg         Config
	app         *fiber.App
	authClient  AuthClient
	market      marketplace.MarketplacePort
	chatServer  ChatServer
	rateLimiter RateLimiter
	logger      types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*APIModule)(nil)
	_ mono.DependentModule       = (*APIModule)(nil)
	_ mono.HealthCheckableModule = (*APIModule)(nil)
)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) *APIModule {
	if cfg.AllowedOrigins == "" {
		cfg.AllowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	return &APIModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "marketplace"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authClient = auth.NewAuthAdapter(container)
	case "marketplace":
		m.market = marketplace.NewMarketplaceAdapter(container)
	}
}

// SetChat injects the websocket chat server.
func (m *APIModule) SetChat(chatServer ChatServer) {
	m.chatServer = chatServer
}

// SetRateLimiter injects the request limiter.
func (m *APIModule) SetRateLimiter(limiter RateLimiter) {
	m.rateLimiter = limiter
}

// Start builds the Fiber app and starts listening.
func (m *APIModule) Start(_ context.Context) error {
	if m.authClient == nil {
		return errors.New("auth dependency not set")
	}
	if m.market == nil {
		return errors.New("marketplace dependency not set")
	}
	if m.chatServer == nil {
		return errors.New("chat server not set")
	}

	m.app = m.newApp()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.cfg.Addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.cfg.Addr,
		},
	}
}

func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Marketplace Chat",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.setupRoutes(app)
	return app
}

// setupRoutes configures all routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	h := NewHandlers(m.authClient, m.market, m.chatServer, m.logger)
	requireAuth := AuthMiddleware(m.authClient)

	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")

	authRoutes := v1.Group("/auth", m.limit(nil))
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)
	authRoutes.Post("/refresh", h.Refresh)

	protected := v1.Group("", requireAuth, m.limit(rateLimitKey))
	protected.Get("/me", h.Me)
	protected.Post("/sellers", h.BecomeSeller)
	protected.Post("/listings", h.CreateListing)
	protected.Get("/listings/:id", h.GetListing)
	protected.Put("/listings/:id", h.UpdateListing)
	protected.Delete("/listings/:id", h.DeleteListing)

	admin := protected.Group("/admin/users", RequireRole(user.RoleAdmin))
	admin.Post("/:id/suspend", h.SuspendUser)
	admin.Post("/:id/activate", h.ActivateUser)
	admin.Post("/:id/approve-seller", h.ApproveSeller)

	// The websocket route authenticates from the query string inside the
	// session, so it sits outside requireAuth.
	app.Use("/chat/ws", upgradeGuard, m.limit(nil))
	app.Get("/chat/ws/:listing_id", websocket.New(h.ChatSocket))

	chatRoutes := app.Group("/chat", requireAuth, m.limit(rateLimitKey))
	chatRoutes.Get("/messages", h.Conversations)
	chatRoutes.Get("/:listing_id", h.ListingMessages)
}

func (m *APIModule) limit(keyFn func(*fiber.Ctx) string) fiber.Handler {
	if m.rateLimiter == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return m.rateLimiter.Handler(keyFn)
}

// errorHandler handles errors returned by handlers and middleware.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
