package server

import (
	"time"

	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/service"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// Register handles POST /api/register
// @Summary Register
// @Description Create an account and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string,displayName=string} true "Registration"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Router /register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return s.fail(c, err)
	}

	s.setSessionCookie(c, result.Token, result.ExpiresAt)
	return c.JSON(result)
}

// Login handles POST /api/login
// @Summary Login
// @Description Exchange a username and password for a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 200 {object} service.AuthResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.userService.Login(c.UserContext(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return s.fail(c, err)
	}

	s.setSessionCookie(c, result.Token, result.ExpiresAt)
	return c.JSON(result)
}

// Logout handles POST /api/logout
// @Summary Logout
// @Description Revoke the current token and clear the session cookie
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if identity := currentIdentity(c); identity != nil && s.blacklist.Enabled() {
		if err := s.blacklist.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
			return s.fail(c, models.NewInternalError(err))
		}
		observability.Ctx(ctx).Info().
			Str("jti", identity.TokenID).
			Dur("remaining", time.Until(identity.ExpiresAt)).
			Msg("token revoked")
	}

	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}
