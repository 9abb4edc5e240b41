package server

import (
	"poetportal/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AdminListUsers handles GET /api/admin/users
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.User
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)

	users, err := s.userService.ListUsers(c.UserContext(), currentUser(c), page.Limit, page.Offset)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(users)
}

// AdminUpdateUser handles PATCH /api/admin/users/:id
// @Summary Edit a user's profile
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body object{displayName=string,bio=string} true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id} [patch]
func (s *Server) AdminUpdateUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req profileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.AdminUpdateUser(c.UserContext(), currentUser(c), service.UpdateProfileInput{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(user)
}

// AdminSetSuspended returns the handler for POST /api/admin/users/:id/suspend
// and /unsuspend.
// @Summary Suspend or reinstate a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/suspend [post]
// @Router /admin/users/{id}/unsuspend [post]
func (s *Server) AdminSetSuspended(suspended bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}

		user, err := s.userService.SetSuspended(c.UserContext(), currentUser(c), userID, suspended)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(user)
	}
}

// AdminSetAdmin returns the handler for POST /api/admin/users/:id/promote-admin
// and /demote-admin.
// @Summary Grant or revoke admin
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/promote-admin [post]
// @Router /admin/users/{id}/demote-admin [post]
func (s *Server) AdminSetAdmin(isAdmin bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}

		user, err := s.userService.SetAdmin(c.UserContext(), currentUser(c), userID, isAdmin)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(user)
	}
}
