package handlers

import (
	"errors"
	"net/url"
	"strconv"

	"spexregister/hal"
	"spexregister/models"
	"spexregister/search"
	"spexregister/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	spexareRelation = "spexare"
	spexarePath     = "/api/v1/spexare"
	halContentType  = "application/hal+json"
)

// SearchSpexare handles GET /api/v1/spexare
func SearchSpexare(c *fiber.Ctx) error {
	ctx := GetContext(c)

	current, err := requestURL(c)
	if err != nil {
		return BadRequestWithDetails(c, ErrorCodeInvalidParameter, "invalid request url", err.Error())
	}

	q := search.ParseQuery(current.Query().Get("q"))
	pageable := ctx.Resolver.Resolve(current.Query())

	page, err := ctx.Store.Search(c.UserContext(), q, pageable)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUnknownAggregation):
			return BadRequestWithDetails(c, ErrorCodeUnknownAggregation, "unknown aggregation in query", err.Error())
		case errors.Is(err, search.ErrInvalidArgument):
			return BadRequestWithDetails(c, ErrorCodeInvalidParameter, "invalid search request", err.Error())
		}
		ctx.logger().Error("Search failed", zap.String("q", q.String()), zap.Error(err))
		return InternalErrorWithDetails(c, ErrorCodeSearchFailed, "search failed", err.Error())
	}

	assembler := hal.NewAssembler[models.Spexare](spexareRelation, current, assemblerOptions(ctx, current)...)

	var model any
	if page.HasContent() {
		base := linkBase(ctx, c)
		model, err = hal.ToModelWith(assembler, page, func(sp models.Spexare) *hal.EntityModel[models.Spexare] {
			return hal.Wrap(sp, selfLink(base, sp.ID))
		})
	} else {
		model, err = assembler.ToEmptyModel(page, spexareRelation)
	}
	if err != nil {
		return InternalErrorWithDetails(c, ErrorCodeSerializationFailed, "failed to assemble result", err.Error())
	}

	return c.JSON(model, halContentType)
}

// GetSpexare handles GET /api/v1/spexare/:id
func GetSpexare(c *fiber.Ctx) error {
	ctx := GetContext(c)

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return BadRequest(c, ErrorCodeInvalidParameter, "id must be a positive number")
	}

	sp, err := ctx.Store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound(c, ErrorCodeSpexareNotFound, "spexare not found")
		}
		return InternalErrorWithDetails(c, ErrorCodeInternalError, "failed to load spexare", err.Error())
	}

	return c.JSON(hal.Wrap(*sp, selfLink(linkBase(ctx, c), sp.ID)), halContentType)
}

// requestURL returns the absolute url of the current request
func requestURL(c *fiber.Ctx) (*url.URL, error) {
	return url.Parse(c.BaseURL() + c.OriginalURL())
}

// assemblerOptions points navigation links at the configured public url, if
// any, keeping the path and query of the request
func assemblerOptions(ctx *HandlerContext, current *url.URL) []hal.Option {
	opts := []hal.Option{hal.WithForceFirstAndLastRels(ctx.Config.ForceFirstAndLastRels)}

	base, _ := ctx.Config.ParsedBaseURL()
	if base != nil {
		public := *base
		public.Path = base.JoinPath(current.Path).Path
		public.RawQuery = current.RawQuery
		opts = append(opts, hal.WithBaseURI(&public))
	}
	return opts
}

// linkBase returns the scheme and host links to single resources start with
func linkBase(ctx *HandlerContext, c *fiber.Ctx) *url.URL {
	if base, _ := ctx.Config.ParsedBaseURL(); base != nil {
		return base
	}
	base, err := url.Parse(c.BaseURL())
	if err != nil {
		return &url.URL{}
	}
	return base
}

func selfLink(base *url.URL, id int64) hal.Link {
	return hal.NewLink(base.JoinPath(spexarePath, strconv.FormatInt(id, 10)).String(), hal.RelSelf)
}
