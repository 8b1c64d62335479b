package server

import (
	"errors"
	"strconv"
	"strings"

	"feedline/internal/middleware"
	"feedline/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseLimit reads ?limit=. Missing or non-numeric values fall back to the
// default page size; range clamping happens in the service.
func parseLimit(c *fiber.Ctx) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return models.DefaultPageLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return models.DefaultPageLimit
	}
	return limit
}

// actingUser resolves who performs a request: an explicit value from the
// body or query wins, then the X-User-ID header.
func actingUser(c *fiber.Ctx, explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if uid, ok := c.Locals("userID").(string); ok && uid != "" {
		return uid
	}
	return strings.TrimSpace(c.Get(middleware.ActingUserHeader))
}

// respondError answers with the status matching err's code. Errors without
// a code are reported as internal errors so storage details stay private.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed", "error", err)
		err = models.NewInternalError(err)
	}
	return models.RespondWithError(c, status, err)
}
