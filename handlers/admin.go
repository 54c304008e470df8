package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"spexregister/formats"
	"spexregister/indexing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TriggerIndex handles POST /api/admin/index/:entity
func TriggerIndex(c *fiber.Ctx) error {
	ctx := GetContext(c)

	entity := c.Params("entity")
	if entity != indexing.Entity {
		return BadRequestWithDetails(c, ErrorCodeUnknownEntity, "unknown entity", entity)
	}

	if !HasIndexer(c) {
		return ServiceUnavailable(c, ErrorCodeIndexingUnavailable, "no registry database configured")
	}

	force := c.QueryBool("force", true)
	if err := ctx.Indexer.Trigger(force); err != nil {
		if errors.Is(err, indexing.ErrAlreadyRunning) {
			return Conflict(c, ErrorCodeIndexingInProgress, "indexing already running")
		}
		return InternalErrorWithDetails(c, ErrorCodeInternalError, "failed to start indexing", err.Error())
	}

	ctx.logger().Info("Indexing triggered",
		zap.String("entity", entity),
		zap.Bool("force", force),
	)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"entity": entity,
		"status": indexing.StatusRunning,
	})
}

// IndexStatus handles GET /api/admin/index/:entity
func IndexStatus(c *fiber.Ctx) error {
	ctx := GetContext(c)

	entity := c.Params("entity")
	if entity != indexing.Entity {
		return BadRequestWithDetails(c, ErrorCodeUnknownEntity, "unknown entity", entity)
	}

	count, err := ctx.Store.DocCount()
	if err != nil {
		return InternalErrorWithDetails(c, ErrorCodeInternalError, "failed to count documents", err.Error())
	}

	response := fiber.Map{
		"entity":    entity,
		"documents": count,
	}
	if HasIndexer(c) {
		response["indexer"] = ctx.Indexer.Statistics()
	}

	return c.JSON(response)
}

// AddDocuments handles POST /api/admin/documents
func AddDocuments(c *fiber.Ctx) error {
	ctx := GetContext(c)
	format := c.Query("format", formats.FormatJSONEachRow)

	parser, err := formats.GetParser(format)
	if err != nil {
		return BadRequestWithDetails(c, ErrorCodeInvalidFormat, "unsupported format", err.Error())
	}

	body := c.Body()
	if len(body) == 0 {
		return BadRequest(c, ErrorCodeInvalidRequestBody, "request body is empty")
	}

	spexare, err := parser.Parse(body)
	if err != nil {
		return BadRequestWithDetails(c, ErrorCodeParseError, "failed to parse documents", err.Error())
	}

	if err := ctx.Store.Index(c.UserContext(), spexare...); err != nil {
		return InternalErrorWithDetails(c, ErrorCodeDocumentOperationFailed, "failed to index documents", err.Error())
	}

	ctx.logger().Debug("Documents added",
		zap.String("format", format),
		zap.Int("count", len(spexare)),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"indexed": len(spexare),
	})
}

// DeleteDocuments handles DELETE /api/admin/documents
func DeleteDocuments(c *fiber.Ctx) error {
	ctx := GetContext(c)

	args := c.Context().QueryArgs()
	raw := append(args.PeekMulti("ids[]"), args.PeekMulti("ids")...)
	if len(raw) == 0 {
		return BadRequest(c, ErrorCodeMissingParameter, "must provide ids[] parameter to delete documents")
	}

	ids := make([]int64, 0, len(raw))
	for _, value := range raw {
		id, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil || id < 1 {
			return BadRequestWithDetails(c, ErrorCodeInvalidParameter, "invalid id", fmt.Sprintf("%q is not a positive number", value))
		}
		ids = append(ids, id)
	}

	if err := ctx.Store.Delete(c.UserContext(), ids...); err != nil {
		return InternalErrorWithDetails(c, ErrorCodeDocumentOperationFailed, "failed to delete documents", err.Error())
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}
