// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"errors"
	"strings"

	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "postId" -> "post ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		return strings.ToLower(param[:len(param)-2]) + " ID"
	}
	return param
}

// actor extracts the authenticated actor set by the auth middleware.
// On failure it writes a 401 JSON response and returns errResponseWritten.
func (s *Server) actor(c *fiber.Ctx) (models.Actor, error) {
	a, ok := middleware.ActorFromContext(c)
	if !ok {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
		return models.Actor{}, errResponseWritten
	}
	return a, nil
}

// respondError maps a service error onto its HTTP status and writes the
// standardized error body.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.HTTPStatus(err), err)
}

// optionalUintQuery returns a pointer to the query parameter value, or nil
// when absent or non-positive.
func optionalUintQuery(c *fiber.Ctx, name string) *uint {
	v := c.QueryInt(name, 0)
	if v <= 0 {
		return nil
	}
	u := uint(v)
	return &u
}
