package middleware

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/celestiaorg/ec2api/internal/constants"
)

const requestIDLocal = "request_id"

// maxRequestIDLength bounds ids accepted from callers
const maxRequestIDLength = 128

// RequestID assigns every request an id, reusing a caller supplied X-Request-ID when present,
// and echoes it in the response
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(constants.HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.New().String()
		}

		c.Locals(requestIDLocal, id)
		c.Set(constants.HeaderRequestID, id)

		return c.Next()
	}
}

// RequestIDFromCtx returns the id assigned by RequestID, or "" outside of it
func RequestIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocal).(string)
	return id
}
