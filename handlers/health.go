package handlers

import "github.com/gofiber/fiber/v2"

// Health handles GET /health
func Health(c *fiber.Ctx) error {
	ctx := GetContext(c)

	count, err := ctx.Store.DocCount()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}

	response := fiber.Map{
		"status":    "ok",
		"documents": count,
	}

	if ctx.Database != nil {
		if ctx.Database.IsConnected(c.UserContext()) {
			response["database"] = "up"
		} else {
			response["status"] = "degraded"
			response["database"] = "down"
		}
	}

	return c.JSON(response)
}
