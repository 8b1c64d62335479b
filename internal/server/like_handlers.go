package server

import (
	"github.com/gofiber/fiber/v2"
)

func likeUser(c *fiber.Ctx) string {
	var req struct {
		UserID string `json:"userId"`
	}
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&req)
	}
	if req.UserID == "" {
		req.UserID = c.Query("userId")
	}
	return actingUser(c, req.UserID)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Like a post
// @Tags likes
// @Produce json
// @Param id path string true "Post ID"
// @Param userId query string false "Acting user (or X-User-ID header)"
// @Success 200 {object} models.LikeStatus
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	status, err := s.likes.Like(c.UserContext(), c.Params("id"), likeUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// UnlikePost handles DELETE /api/posts/:id/like
// @Summary Remove a like
// @Tags likes
// @Produce json
// @Param id path string true "Post ID"
// @Param userId query string false "Acting user (or X-User-ID header)"
// @Success 200 {object} models.LikeStatus
// @Router /posts/{id}/like [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	status, err := s.likes.Unlike(c.UserContext(), c.Params("id"), likeUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// GetLikeStatus handles GET /api/posts/:id/like
// @Summary Like status and count
// @Tags likes
// @Produce json
// @Param id path string true "Post ID"
// @Param userId query string false "Acting user (or X-User-ID header)"
// @Success 200 {object} models.LikeStatus
// @Router /posts/{id}/like [get]
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	status, err := s.likes.Status(c.UserContext(), c.Params("id"), likeUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}
