package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// KeyFunc extracts the rate limit key from a request. An empty key falls
// back to the client IP.
type KeyFunc func(c *fiber.Ctx) string

// Middleware returns a fiber handler limiting requests per key. A nil limiter
// lets every request through. Limiter errors fail open.
func Middleware(limiter Limiter, limit int, keyFn KeyFunc, logger types.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}

		key := ""
		if keyFn != nil {
			key = keyFn(c)
		}
		if key == "" {
			key = "ip:" + c.IP()
		}

		result, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			logger.Warn("Rate limit check failed, allowing request", "key", key, "error", err)
			c.Set("X-RateLimit-Error", "unavailable")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			return tooManyRequests(c, result)
		}
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx, result *Result) error {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set("Retry-After", strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       "Too Many Requests",
		"message":     fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
		"retry_after": retryAfter,
	})
}
