package server

import (
	"feedline/internal/models"
	"feedline/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	UserID   string  `json:"userId"`
	Content  string  `json:"content"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Saves the post, adds it to the author's timeline and fans it out to followers.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body createPostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.posts.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: actingUser(c, req.UserID),
		Content:  req.Content,
		ImageRef: req.ImageURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.posts.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Description Only the author may delete. Timeline entries are left in place and skipped on read.
// @Tags posts
// @Param id path string true "Post ID"
// @Param userId query string false "Acting user (or X-User-ID header)"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.posts.DeletePost(c.UserContext(), c.Params("id"), actingUser(c, c.Query("userId"))); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
