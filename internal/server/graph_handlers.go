package server

import (
	"poetportal/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/likes
// @Summary Toggle like
// @Description Likes the target, or removes the like when it already exists
// @Tags likes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{targetType=string,targetId=int} true "Target (post or comment)"
// @Success 200 {object} models.LikeState
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /likes [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req struct {
		TargetType string `json:"targetType"`
		TargetID   uint   `json:"targetId"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	target, err := models.ParseLikeTarget(req.TargetType, req.TargetID)
	if err != nil {
		return s.fail(c, err)
	}

	state, err := s.likeService.Toggle(c.UserContext(), currentUserID(c), target)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(state)
}

// GetLikeState handles GET /api/likes
// @Summary Like state
// @Tags likes
// @Produce json
// @Param targetType query string true "post or comment"
// @Param targetId query int true "Target ID"
// @Success 200 {object} models.LikeState
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /likes [get]
func (s *Server) GetLikeState(c *fiber.Ctx) error {
	targetID := c.QueryInt("targetId", 0)
	if targetID < 0 {
		targetID = 0
	}
	target, err := models.ParseLikeTarget(c.Query("targetType"), uint(targetID))
	if err != nil {
		return s.fail(c, err)
	}

	state, err := s.likeService.State(c.UserContext(), currentUserID(c), target)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(state)
}

// resolveUserParam looks up the :id parameter as an id or a username.
func (s *Server) resolveUserParam(c *fiber.Ctx) (*models.User, error) {
	return s.userService.ResolveUser(c.UserContext(), c.Params("id"))
}

// GetUserProfile handles GET /api/users/:id
// @Summary User profile
// @Tags users
// @Produce json
// @Param id path string true "User ID or username"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user, err := s.resolveUserParam(c)
	if err != nil {
		return s.fail(c, err)
	}

	profile, err := s.feedService.UserProfile(c.UserContext(), user.ID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(profile)
}

// GetFollowers handles GET /api/users/:id/followers
// @Summary Followers
// @Tags follows
// @Produce json
// @Param id path string true "User ID or username"
// @Success 200 {array} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	user, err := s.resolveUserParam(c)
	if err != nil {
		return s.fail(c, err)
	}

	followers, err := s.followService.Followers(c.UserContext(), user.ID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(followers)
}

// GetFollowingList handles GET /api/users/:id/following-list
// @Summary Following
// @Tags follows
// @Produce json
// @Param id path string true "User ID or username"
// @Success 200 {array} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/following-list [get]
func (s *Server) GetFollowingList(c *fiber.Ctx) error {
	user, err := s.resolveUserParam(c)
	if err != nil {
		return s.fail(c, err)
	}

	following, err := s.followService.Following(c.UserContext(), user.ID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(following)
}

// GetFollowStatus handles GET /api/users/:id/follow-status
// @Summary Follow status
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID or username"
// @Success 200 {object} models.FollowStatus
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow-status [get]
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	user, err := s.resolveUserParam(c)
	if err != nil {
		return s.fail(c, err)
	}

	status, err := s.feedService.FollowRelationship(c.UserContext(), currentUserID(c), user.ID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(status)
}

// FollowUser handles POST /api/users/:id/follow
// @Summary Follow user
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID or username"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	user, err := s.resolveUserParam(c)
	if err != nil {
		return s.fail(c, err)
	}

	if _, err := s.followService.Follow(c.UserContext(), currentUserID(c), user.ID); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Followed " + user.Username})
}

// UnfollowUser handles DELETE /api/users/:id/follow
// @Summary Unfollow user
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID or username"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	user, err := s.resolveUserParam(c)
	if err != nil {
		return s.fail(c, err)
	}

	if err := s.followService.Unfollow(c.UserContext(), currentUserID(c), user.ID); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unfollowed " + user.Username})
}
