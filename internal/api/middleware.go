package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/auth"
)

const (
	localsUserID = "user_id"
	localsEmail  = "user_email"
)

func jwtAuth(tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get("Authorization")
		const pref = "Bearer "
		if !strings.HasPrefix(h, pref) {
			return fail(c, fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthorized))
		}
		claims, err := tokens.Validate(strings.TrimPrefix(h, pref))
		if err != nil {
			return fail(c, fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized))
		}
		c.Locals(localsUserID, claims.UserID)
		c.Locals(localsEmail, claims.Email)
		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsUserID).(string)
	return id
}

// rateLimit is a fixed-window counter in Redis, keyed per client IP.
// Mounted on the OTP endpoints only, and only when Redis is configured.
func rateLimit(client *redis.Client, prefix string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("%s:rl:%s:%s", prefix, c.Path(), c.IP())
		count, err := client.Incr(c.Context(), key).Result()
		if err != nil {
			// limiter outage must not take auth down with it
			return c.Next()
		}
		if count == 1 {
			client.Expire(c.Context(), key, window)
		}
		if count > int64(limit) {
			return fail(c, apperr.ErrRateLimited)
		}
		return c.Next()
	}
}
