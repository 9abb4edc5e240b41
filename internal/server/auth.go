package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"poetportal/internal/auth"
	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "poetportal_session"

// bearerToken returns the token from the Authorization header, falling back
// to the session cookie.
func bearerToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(SessionCookie)
}

// tokenFailure maps token validation errors to the message the client sees.
func tokenFailure(err error) *models.AppError {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return models.NewUnauthorizedError("Token has expired")
	case errors.Is(err, auth.ErrTokenMalformed):
		return models.NewUnauthorizedError("Token is malformed")
	default:
		return models.NewUnauthorizedError("Invalid token signature")
	}
}

// authenticate resolves the request's token into a live, non-suspended user.
// The user row is re-read on every request so suspension and admin changes
// apply to tokens that are already issued.
func (s *Server) authenticate(c *fiber.Ctx) (*models.User, *auth.Identity, error) {
	token := bearerToken(c)
	if token == "" {
		return nil, nil, models.NewUnauthorizedError("Authorization required")
	}

	identity, err := s.issuer.Validate(token)
	if err != nil {
		return nil, nil, tokenFailure(err)
	}

	ctx := c.UserContext()
	if s.blacklist.Enabled() && identity.TokenID != "" {
		revoked, err := s.blacklist.IsRevoked(ctx, identity.TokenID)
		if err != nil {
			observability.Ctx(ctx).Warn().Err(err).Msg("token blacklist lookup failed")
		} else if revoked {
			return nil, nil, models.NewUnauthorizedError("Token has been revoked")
		}
	}

	user, err := s.userRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, nil, models.NewUnauthorizedError("User no longer exists")
		}
		return nil, nil, err
	}
	if user.IsSuspended {
		return nil, nil, models.NewAccountSuspendedError()
	}
	return user, identity, nil
}

func (s *Server) attach(c *fiber.Ctx, user *models.User, identity *auth.Identity) {
	c.Locals("userID", user.ID)
	c.Locals("user", user)
	c.Locals("identity", identity)
	ctx := context.WithValue(c.UserContext(), observability.UserIDKey, user.ID)
	c.SetUserContext(ctx)
}

// AuthRequired rejects requests without a valid token for an active user.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, identity, err := s.authenticate(c)
		if err != nil {
			observability.AuthAttempts.WithLabelValues("gate", strings.ToLower(models.ErrorCode(err))).Inc()
			return s.fail(c, err)
		}
		s.attach(c, user, identity)
		return c.Next()
	}
}

// OptionalAuth attaches the user when a usable token is present and never
// rejects the request.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if bearerToken(c) == "" {
			return c.Next()
		}
		if user, identity, err := s.authenticate(c); err == nil {
			s.attach(c, user, identity)
		}
		return c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := service.RequireAdmin(currentUser(c)); err != nil {
			return s.fail(c, err)
		}
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

func currentIdentity(c *fiber.Ctx) *auth.Identity {
	identity, _ := c.Locals("identity").(*auth.Identity)
	return identity
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
