// Package middleware provides the fiber middleware shared by all API routes
package middleware

import (
	"errors"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	log "github.com/celestiaorg/ec2api/internal/logger"
)

// Logger returns a middleware that logs HTTP requests
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Continue chain
		err := c.Next()

		// After request
		stop := time.Now()
		latency := stop.Sub(start)

		status := responseStatus(c, err)
		fields := log.Fields{
			"status":  status,
			"latency": latency.String(),
			"ip":      c.IP(),
			"method":  c.Method(),
			"path":    c.Path(),
			"handler": c.Route().Name,
		}
		if id := RequestIDFromCtx(c); id != "" {
			fields["request_id"] = id
		}
		if err != nil {
			fields["error"] = err.Error()
		}

		if status >= fiber.StatusInternalServerError {
			log.ErrorWithFields("Request", fields)
		} else {
			log.InfoWithFields("Request", fields)
		}

		return err
	}
}

// responseStatus is the status the client will see. A returned error is only turned into a
// response by the app's error handler after the middleware chain has unwound.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
