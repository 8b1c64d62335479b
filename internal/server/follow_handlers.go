package server

import (
	"github.com/gofiber/fiber/v2"
)

type followRequest struct {
	FollowerID string `json:"followerId"`
}

// followerFrom reads the follower from the body, the query or the acting
// user header, in that order.
func followerFrom(c *fiber.Ctx) string {
	var req followRequest
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&req)
	}
	if req.FollowerID == "" {
		req.FollowerID = c.Query("followerId")
	}
	return actingUser(c, req.FollowerID)
}

// FollowUser handles POST /api/users/:userId/follow
// @Summary Follow a user
// @Description New posts by userId reach the follower's timeline from now on.
// @Tags follows
// @Accept json
// @Produce json
// @Param userId path string true "User to follow"
// @Param request body followRequest false "Follower"
// @Success 201 {object} models.Follow
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/{userId}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	follow, err := s.follows.Follow(c.UserContext(), followerFrom(c), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(follow)
}

// UnfollowUser handles DELETE /api/users/:userId/follow
// @Summary Unfollow a user
// @Tags follows
// @Param userId path string true "User to unfollow"
// @Param followerId query string false "Follower (or X-User-ID header)"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	if err := s.follows.Unfollow(c.UserContext(), followerFrom(c), c.Params("userId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFollowers handles GET /api/users/:userId/followers
// @Summary List followers
// @Tags follows
// @Produce json
// @Param userId path string true "User"
// @Success 200 {object} map[string]interface{}
// @Router /users/{userId}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID := c.Params("userId")
	followers, err := s.follows.GetFollowers(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"userId": userID, "followers": followers})
}

// GetFollowing handles GET /api/users/:userId/following
// @Summary List followed users
// @Tags follows
// @Produce json
// @Param userId path string true "User"
// @Success 200 {object} map[string]interface{}
// @Router /users/{userId}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID := c.Params("userId")
	following, err := s.follows.GetFollowing(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"userId": userID, "following": following})
}

// GetFollowStatus handles GET /api/users/:userId/follow-status
// @Summary Check whether followerId follows userId
// @Tags follows
// @Produce json
// @Param userId path string true "User"
// @Param followerId query string false "Follower (or X-User-ID header)"
// @Success 200 {object} map[string]interface{}
// @Router /users/{userId}/follow-status [get]
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	following, err := s.follows.IsFollowing(c.UserContext(), actingUser(c, c.Query("followerId")), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// GetFollowCounts handles GET /api/users/:userId/follow-counts
// @Summary Follower and following counts
// @Tags follows
// @Produce json
// @Param userId path string true "User"
// @Success 200 {object} models.FollowCounts
// @Router /users/{userId}/follow-counts [get]
func (s *Server) GetFollowCounts(c *fiber.Ctx) error {
	counts, err := s.follows.GetCounts(c.UserContext(), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counts)
}
