package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Machine-readable reasons carried in every JSON error body.
const (
	ReasonInvalidInput        = "invalid_input"
	ReasonInvalidCredentials  = "invalid_credentials"
	ReasonCatalogUnavailable  = "catalog_unavailable"
	ReasonUpstreamUnavailable = "upstream_unavailable"
	ReasonNotFound            = "not_found"
	ReasonRateLimited         = "rate_limited"
	ReasonInternal            = "internal"
)

func errorResponse(c *fiber.Ctx, status int, reason, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":  message,
		"reason": reason,
	})
}

// ErrorHandler turns errors returned by handlers into JSON bodies. Internal
// error text is logged, never sent.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		zap.L().Error("HTTP error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	} else {
		zap.L().Debug("HTTP error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err))
	}

	return errorResponse(c, code, reasonForStatus(code), message)
}

func reasonForStatus(code int) string {
	switch code {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
		return ReasonInvalidInput
	case fiber.StatusUnauthorized:
		return ReasonInvalidCredentials
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return ReasonNotFound
	case fiber.StatusTooManyRequests:
		return ReasonRateLimited
	case fiber.StatusBadGateway, fiber.StatusServiceUnavailable, fiber.StatusGatewayTimeout:
		return ReasonUpstreamUnavailable
	default:
		return ReasonInternal
	}
}

// validationMessage renders validator errors as one readable sentence.
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return "Invalid input"
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid", fe.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}
