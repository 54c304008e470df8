package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorCode represents a typed error code for client libraries
type ErrorCode string

const (
	// Validation errors (400)
	ErrorCodeMissingParameter   ErrorCode = "MISSING_PARAMETER"
	ErrorCodeInvalidParameter   ErrorCode = "INVALID_PARAMETER"
	ErrorCodeInvalidRequestBody ErrorCode = "INVALID_REQUEST_BODY"
	ErrorCodeInvalidFormat      ErrorCode = "INVALID_FORMAT"
	ErrorCodeParseError         ErrorCode = "PARSE_ERROR"
	ErrorCodeUnknownAggregation ErrorCode = "UNKNOWN_AGGREGATION"
	ErrorCodeUnknownEntity      ErrorCode = "UNKNOWN_ENTITY"

	// Authentication errors (401)
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Not found errors (404)
	ErrorCodeSpexareNotFound ErrorCode = "SPEXARE_NOT_FOUND"

	// Resource conflict errors (409)
	ErrorCodeIndexingInProgress ErrorCode = "INDEXING_IN_PROGRESS"

	// Unavailable (503)
	ErrorCodeIndexingUnavailable ErrorCode = "INDEXING_UNAVAILABLE"

	// Internal errors (500)
	ErrorCodeSearchFailed            ErrorCode = "SEARCH_FAILED"
	ErrorCodeDocumentOperationFailed ErrorCode = "DOCUMENT_OPERATION_FAILED"
	ErrorCodeSerializationFailed     ErrorCode = "SERIALIZATION_FAILED"
	ErrorCodeInternalError           ErrorCode = "INTERNAL_ERROR"

	// Routing errors
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// Error helper functions

func BadRequest(c *fiber.Ctx, code ErrorCode, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func BadRequestWithDetails(c *fiber.Ctx, code ErrorCode, message, details string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func NotFound(c *fiber.Ctx, code ErrorCode, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func Conflict(c *fiber.Ctx, code ErrorCode, message string) error {
	return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func ServiceUnavailable(c *fiber.Ctx, code ErrorCode, message string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func InternalError(c *fiber.Ctx, code ErrorCode, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func InternalErrorWithDetails(c *fiber.Ctx, code ErrorCode, message, details string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// ErrorHandler renders errors that escape a handler in the same shape as the
// helpers above
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		code := ErrorCodeInternalError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
			switch {
			case status == fiber.StatusNotFound:
				code = ErrorCodeNotFound
			case status == fiber.StatusMethodNotAllowed:
				code = ErrorCodeMethodNotAllowed
			case status < fiber.StatusInternalServerError:
				code = ErrorCodeInvalidParameter
			}
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("Request error",
				zap.Error(err),
				zap.Int("status", status),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		}

		return c.Status(status).JSON(ErrorResponse{
			Code:    code,
			Message: err.Error(),
		})
	}
}
