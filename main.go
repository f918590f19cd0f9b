package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/marketplace-chat/modules/api"
	"github.com/example/marketplace-chat/modules/auth"
	"github.com/example/marketplace-chat/modules/chat"
	"github.com/example/marketplace-chat/modules/database"
	"github.com/example/marketplace-chat/modules/interactions"
	"github.com/example/marketplace-chat/modules/marketplace"
	"github.com/example/marketplace-chat/modules/ratelimit"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Marketplace Chat ===")

	cfg := loadConfig()

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()

	dbModule := database.NewModule(cfg.Database, logger.WithModule("database"))
	authModule := auth.NewModule(cfg.Auth, dbModule, logger.WithModule("auth"))
	marketplaceModule := marketplace.NewModule(dbModule, logger.WithModule("marketplace"))
	chatModule := chat.NewModule(cfg.Chat, logger.WithModule("chat"))
	interactionsModule := interactions.NewModule(logger.WithModule("interactions"))
	rateLimitModule := ratelimit.NewModule(cfg.RedisAddr, cfg.RedisPassword, cfg.RateLimit, logger.WithModule("rate-limiter"))
	apiModule := api.NewModule(cfg.API, logger.WithModule("api"))

	// The chat server and limiter are not exposed via ServiceContainer.
	apiModule.SetChat(chatModule)
	apiModule.SetRateLimiter(rateLimitModule)

	// Modules start in registration order; database must come first since
	// auth and marketplace read its connection in Start.
	app.Register(dbModule)
	app.Register(authModule)
	app.Register(marketplaceModule)
	app.Register(chatModule)
	app.Register(interactionsModule)
	app.Register(rateLimitModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg Config) {
	rateLimit := "disabled"
	if cfg.RedisAddr != "" {
		rateLimit = cfg.RateLimit.WindowSize.String()
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Printf("  Database: %s", cfg.Database.Driver)
	log.Printf("  Rate limit window: %s", rateLimit)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.Port)
	log.Println("  GET    /health                    - Health check")
	log.Println("  POST   /api/v1/auth/register      - Create an account")
	log.Println("  POST   /api/v1/auth/login         - Obtain tokens")
	log.Println("  POST   /api/v1/auth/refresh       - Refresh tokens")
	log.Println("  GET    /api/v1/me                 - Current account")
	log.Println("  POST   /api/v1/sellers            - Become a seller")
	log.Println("  POST   /api/v1/listings           - Create a listing")
	log.Println("  GET    /api/v1/listings/:id       - Get a listing")
	log.Println("  GET    /chat/messages             - Your conversations")
	log.Println("  GET    /chat/:listing_id          - Your messages on a listing")
	log.Println("")
	log.Printf("WebSocket Endpoint: ws://localhost:%d/chat/ws/:listing_id?token=<access token>", cfg.Port)
	log.Println(`  {"action":"message","receiver_id":100,"message":"Is it available?"}`)
	log.Println(`  {"action":"typing","receiver_id":100,"typing":true}`)
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
