package middleware

import (
	"crypto/subtle"
	"strings"

	"spexregister/config"
	"spexregister/handlers"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Authorization creates an authentication middleware
// If no API key is configured, authentication is disabled and all requests are allowed
// Otherwise, validates Bearer token in Authorization header
func Authorization(cfg *config.Config, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// If no API key is configured, skip authentication
		if !cfg.RequiresAuth() {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, logger, "missing authorization header")
		}

		// Check for Bearer token format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return unauthorized(c, logger, "invalid authorization format, expected 'Bearer <token>'")
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(cfg.APIKey)) != 1 {
			return unauthorized(c, logger, "invalid authorization token")
		}

		logger.Debug("request authorized",
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
		)

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, logger *zap.Logger, message string) error {
	logger.Warn(message,
		zap.String("path", c.Path()),
		zap.String("method", c.Method()),
		zap.String("ip", c.IP()),
		zap.String("request_id", RequestIDFrom(c)),
	)
	return c.Status(fiber.StatusUnauthorized).JSON(handlers.ErrorResponse{
		Code:    handlers.ErrorCodeUnauthorized,
		Message: message,
	})
}
