package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/marketplace-chat/modules/api"
	"github.com/example/marketplace-chat/modules/auth"
	"github.com/example/marketplace-chat/modules/chat"
	"github.com/example/marketplace-chat/modules/database"
	"github.com/example/marketplace-chat/modules/ratelimit"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port          int
	Database      database.Config
	Auth          auth.Config
	Chat          chat.Config
	RedisAddr     string
	RedisPassword string
	RateLimit     ratelimit.Config
	API           api.Config
}

func loadConfig() Config {
	jwtCfg := auth.DefaultJWTConfig()
	jwtCfg.SecretKey = getEnv("JWT_SECRET_KEY", jwtCfg.SecretKey)
	jwtCfg.Issuer = getEnv("JWT_ISSUER", jwtCfg.Issuer)
	jwtCfg.AccessTokenDuration = getEnvDuration("JWT_ACCESS_TTL", jwtCfg.AccessTokenDuration)
	jwtCfg.RefreshTokenDuration = getEnvDuration("JWT_REFRESH_TTL", jwtCfg.RefreshTokenDuration)
	if os.Getenv("JWT_SECRET_KEY") == "" {
		log.Println("Warning: JWT_SECRET_KEY not set, using the development secret")
	}

	chatCfg := chat.DefaultConfig()
	chatCfg.WriteTimeout = getEnvDuration("CHAT_WRITE_TIMEOUT", chatCfg.WriteTimeout)
	chatCfg.MaxMessageLength = getEnvInt("CHAT_MAX_MESSAGE_LENGTH", chatCfg.MaxMessageLength)

	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerWindow = getEnvInt("RATE_LIMIT_REQUESTS", rlCfg.RequestsPerWindow)
	rlCfg.WindowSize = getEnvDuration("RATE_LIMIT_WINDOW", rlCfg.WindowSize)

	port := getEnvInt("PORT", 3000)

	return Config{
		Port: port,
		Database: database.Config{
			Driver: strings.ToLower(getEnv("DB_DRIVER", database.DriverSQLite)),
			DSN:    getEnv("DB_DSN", "./marketplace.db"),
			Debug:  getEnvBool("DB_DEBUG", false),
		},
		Auth:          auth.Config{JWT: jwtCfg},
		Chat:          chatCfg,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RateLimit:     rlCfg,
		API: api.Config{
			Addr:           ":" + strconv.Itoa(port),
			AllowedOrigins: os.Getenv("CORS_ALLOWED_ORIGINS"),
		},
	}
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}
