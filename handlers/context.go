package handlers

import (
	"context"

	"spexregister/config"
	"spexregister/indexing"
	"spexregister/search"
	"spexregister/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DatabaseChecker reports whether the registry database is reachable
type DatabaseChecker interface {
	IsConnected(ctx context.Context) bool
}

// HandlerContext holds dependencies needed by handlers
type HandlerContext struct {
	Store    *store.Store
	Indexer  *indexing.Indexer
	Database DatabaseChecker
	Config   *config.Config
	Resolver *search.PageableResolver
	Logger   *zap.Logger
}

const contextKey = "handler_context"

// SetContext stores the HandlerContext in the Fiber context
func SetContext(c *fiber.Ctx, ctx *HandlerContext) {
	c.Locals(contextKey, ctx)
}

// GetContext retrieves the HandlerContext from the Fiber context
func GetContext(c *fiber.Ctx) *HandlerContext {
	return c.Locals(contextKey).(*HandlerContext)
}

// Inject returns a middleware that makes ctx available to every handler
func Inject(ctx *HandlerContext) fiber.Handler {
	return func(c *fiber.Ctx) error {
		SetContext(c, ctx)
		return c.Next()
	}
}

// HasIndexer returns true if indexing from the registry database is configured
func HasIndexer(c *fiber.Ctx) bool {
	return GetContext(c).Indexer != nil
}

func (h *HandlerContext) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
