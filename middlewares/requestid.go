package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID assigns every request an id, keeping one sent by the client.
// New ids are UUIDv7 so they sort by time.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.Clone(c.Get(HeaderRequestID))
		if id == "" || len(id) > 128 {
			generated, err := uuid.NewV7()
			if err != nil {
				return err
			}
			id = generated.String()
		}

		c.Locals(requestIDKey, id)
		c.Set(HeaderRequestID, id)

		return c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID, or an empty string
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
