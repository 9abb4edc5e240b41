package server

import (
	"errors"
	"io"

	"poetportal/internal/models"
	"poetportal/internal/service"

	"github.com/gofiber/fiber/v2"
)

var errNoStorage = errors.New("file storage is not configured")

type profileRequest struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
}

// GetCurrentUser handles GET /api/user
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /user [get]
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// UpdateCurrentUser handles PUT /api/user
// @Summary Update profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{displayName=string,bio=string} true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /user [put]
func (s *Server) UpdateCurrentUser(c *fiber.Ctx) error {
	var req profileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:      currentUserID(c),
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(user)
}

// UpdateAvatar handles PUT /api/user/avatar
// @Summary Upload avatar
// @Description Accepts JPEG, PNG or WebP up to 5MB; stored as a 256x256 WebP
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /user/avatar [put]
func (s *Server) UpdateAvatar(c *fiber.Ctx) error {
	if s.avatarService == nil {
		return s.fail(c, models.NewInternalError(errNoStorage))
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return s.fail(c, models.NewValidationError("No file uploaded"))
	}
	if fileHeader.Size > service.MaxAvatarUploadBytes {
		return s.fail(c, models.NewValidationError("File too large (max 5MB)"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return s.fail(c, models.NewInternalError(err))
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, service.MaxAvatarUploadBytes+1))
	if err != nil {
		return s.fail(c, models.NewInternalError(err))
	}

	user, err := s.avatarService.UpdateAvatar(c.UserContext(), service.UpdateAvatarInput{
		UserID:  currentUserID(c),
		Content: content,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(user)
}
