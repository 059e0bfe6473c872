package middleware

import (
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestid"

var clientRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID tags every request with an ID, reusing a well-formed one sent by
// the client, and echoes it in the response. Malformed client IDs are
// dropped before fiber's requestid middleware sees them, so they never reach
// the access log.
func RequestID() fiber.Handler {
	assign := requestid.New(requestid.Config{
		Header:     RequestIDHeader,
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	})
	return func(c *fiber.Ctx) error {
		if id := c.Get(RequestIDHeader); id != "" && !clientRequestID.MatchString(id) {
			c.Request().Header.Del(RequestIDHeader)
		}
		return assign(c)
	}
}

// GetRequestID returns the ID assigned by RequestID, or "" outside it.
func GetRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDKey).(string); ok {
		return id
	}
	return ""
}
