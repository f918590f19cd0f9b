package api

import (
	"context"

	"github.com/example/marketplace-chat/domain/user"
	"github.com/example/marketplace-chat/modules/auth"
	"github.com/example/marketplace-chat/modules/chat"
	"github.com/example/marketplace-chat/modules/ratelimit"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
)

// AuthClient is what the HTTP layer needs from the auth module.
type AuthClient interface {
	auth.AuthPort
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.UserView, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*user.TokenPair, error)
	SetUserActive(ctx context.Context, userID int64, active bool) (*auth.UserView, error)
}

// ChatServer runs websocket channels.
type ChatServer interface {
	Serve(t chat.Transport, listingParam, token string)
	Health(ctx context.Context) mono.HealthStatus
}

// RateLimiter supplies the request limiting middleware.
type RateLimiter interface {
	Handler(keyFn ratelimit.KeyFunc) fiber.Handler
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// BecomeSellerRequest creates the caller's seller profile.
type BecomeSellerRequest struct {
	BusinessName string `json:"business_name"`
	Address      string `json:"address"`
}

// CreateListingRequest represents a new listing.
type CreateListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Location    string  `json:"location"`
	Category    string  `json:"category"`
}

// UpdateListingRequest changes a listing. Omitted fields are kept.
type UpdateListingRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Location    *string  `json:"location"`
	Category    *string  `json:"category"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
