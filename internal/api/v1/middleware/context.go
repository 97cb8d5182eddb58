package middleware

import (
	"context"

	fiber "github.com/gofiber/fiber/v2"
)

// RequestContext sets a user context derived from base on every request. Handlers see it
// canceled once base is canceled, and it is released when the request returns.
func RequestContext(base context.Context) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithCancel(base)
		defer cancel()

		c.SetUserContext(ctx)
		return c.Next()
	}
}
