package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"docreview/internal/lifecycle"
	"docreview/internal/models"
	"docreview/internal/validation"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonCreated returns a 201 response with data wrapped in the standard envelope.
func jsonCreated(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// jsonValidationError returns a 400 listing each invalid field.
func jsonValidationError(c fiber.Ctx, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error",
			"error":  verrs.Error(),
			"fields": verrs,
		})
	}
	return jsonError(c, fiber.StatusBadRequest, "invalid request body")
}

// lifecycleError maps an engine error onto its HTTP status. Internal causes
// are logged and replaced by a generic message.
func lifecycleError(c fiber.Ctx, err error) error {
	kind := lifecycle.KindOf(err)
	if kind == lifecycle.KindInternal {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return jsonError(c, kind.HTTPStatus(), lifecycle.MessageOf(err))
}

// currentUser returns the user set by the auth middleware.
func currentUser(c fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals("user").(*models.User)
	return user, ok && user != nil
}
