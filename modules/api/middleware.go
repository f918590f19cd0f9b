package api

import (
	"strconv"
	"strings"

	"github.com/example/marketplace-chat/domain/user"
	"github.com/example/marketplace-chat/modules/auth"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// IdentityContextKey is the Locals key holding the caller's *user.Identity.
const IdentityContextKey = "identity"

// AuthMiddleware requires a valid Bearer access token.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token is required",
			})
		}

		identity, err := authPort.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(IdentityContextKey, identity)
		return c.Next()
	}
}

// RequireRole admits callers whose identity carries one of roles. It must
// run after AuthMiddleware.
func RequireRole(roles ...user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := identityFrom(c)
		if !ok {
			return unauthorized(c)
		}
		for _, r := range roles {
			if identity.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "Insufficient role",
		})
	}
}

// identityFrom returns the identity stored by AuthMiddleware.
func identityFrom(c *fiber.Ctx) (*user.Identity, bool) {
	identity, ok := c.Locals(IdentityContextKey).(*user.Identity)
	return identity, ok && identity != nil
}

// rateLimitKey limits authenticated callers per user and everyone else per IP.
func rateLimitKey(c *fiber.Ctx) string {
	if identity, ok := identityFrom(c); ok {
		return "user:" + strconv.FormatInt(identity.UserID, 10)
	}
	return ""
}

// upgradeGuard rejects plain HTTP requests on websocket routes.
func upgradeGuard(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
