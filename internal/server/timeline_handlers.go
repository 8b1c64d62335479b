package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetTimeline handles GET /timeline/:userId and /api/timeline/:userId
// @Summary Read a home timeline
// @Description Newest first. Pass nextCursor back as cursor for the next page.
// @Tags timeline
// @Produce json
// @Param userId path string true "Timeline owner"
// @Param cursor query string false "Exclusive start post ID"
// @Param limit query int false "Page size (1-100, default 20)"
// @Success 200 {object} models.Timeline
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /timeline/{userId} [get]
func (s *Server) GetTimeline(c *fiber.Ctx) error {
	timeline, err := s.timelines.ReadTimeline(c.UserContext(), c.Params("userId"), c.Query("cursor"), parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(timeline)
}
