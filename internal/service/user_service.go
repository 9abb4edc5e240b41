package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/repository"
	"poetportal/internal/validation"
)

// PasswordHasher derives and checks password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

type UserService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	issuer   TokenIssuer

	dummyOnce   sync.Once
	dummyDigest string
}

type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
}

type LoginInput struct {
	Username string
	Password string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// UpdateProfileInput changes the fields that are non-nil.
type UpdateProfileInput struct {
	UserID      uint
	DisplayName *string
	Bio         *string
}

func NewUserService(userRepo repository.UserRepository, hasher PasswordHasher, issuer TokenIssuer) *UserService {
	return &UserService{
		userRepo: userRepo,
		hasher:   hasher,
		issuer:   issuer,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	_, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		observability.AuthAttempts.WithLabelValues("register", "conflict").Inc()
		return nil, models.WrapDomainError(models.CodeConflict, models.ErrUsernameTaken)
	case models.ErrorCode(err) != models.CodeNotFound:
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:    username,
		Password:    digest,
		DisplayName: displayName,
	}
	// the unique index still decides when two registrations race
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrUsernameTaken) {
			observability.AuthAttempts.WithLabelValues("register", "conflict").Inc()
		}
		return nil, err
	}

	observability.AuthAttempts.WithLabelValues("register", "success").Inc()
	observability.Ctx(ctx).Info().Uint(observability.FieldUserID, user.ID).Msg("user registered")
	return s.session(user)
}

// Login checks credentials. Unknown usernames still pay for one digest
// verification.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	invalid := models.WrapDomainError(models.CodeUnauthorized, models.ErrInvalidCredentials)

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		if models.ErrorCode(err) != models.CodeNotFound {
			return nil, err
		}
		_, _ = s.hasher.Verify(in.Password, s.dummy())
		observability.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		return nil, invalid
	}

	ok, err := s.hasher.Verify(in.Password, user.Password)
	if err != nil {
		observability.Ctx(ctx).Error().Err(err).Uint(observability.FieldUserID, user.ID).Msg("stored password digest is unreadable")
		observability.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		return nil, invalid
	}
	if !ok {
		observability.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		return nil, invalid
	}
	if user.IsSuspended {
		observability.AuthAttempts.WithLabelValues("login", "suspended").Inc()
		return nil, models.NewAccountSuspendedError()
	}

	observability.AuthAttempts.WithLabelValues("login", "success").Inc()
	return s.session(user)
}

func (s *UserService) session(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("poetportal-timing-equaliser-1")
		if err != nil {
			observability.L().Warn().Err(err).Msg("could not derive dummy digest")
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

// ResolveUser looks ref up as a numeric id first and as a username otherwise.
func (s *UserService) ResolveUser(ctx context.Context, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, models.NewValidationError("User reference is required")
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil && id > 0 {
		return s.userRepo.GetByID(ctx, uint(id))
	}
	return s.userRepo.GetByUsername(ctx, ref)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	fields := make(map[string]interface{}, 2)
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if err := validation.ValidateDisplayName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["display_name"] = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if err := validation.ValidateBio(bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["bio"] = bio
	}

	return s.userRepo.Update(ctx, in.UserID, fields)
}

func (s *UserService) ListUsers(ctx context.Context, admin *models.User, limit, offset int) ([]models.User, error) {
	if err := RequireAdmin(admin); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx, limit, offset)
}

// AdminUpdateUser edits another user's profile fields.
func (s *UserService) AdminUpdateUser(ctx context.Context, admin *models.User, in UpdateProfileInput) (*models.User, error) {
	if err := RequireAdmin(admin); err != nil {
		return nil, err
	}
	return s.UpdateProfile(ctx, in)
}

func (s *UserService) SetSuspended(ctx context.Context, admin *models.User, targetID uint, suspended bool) (*models.User, error) {
	return s.setFlag(ctx, admin, targetID, "is_suspended", suspended)
}

func (s *UserService) SetAdmin(ctx context.Context, admin *models.User, targetID uint, isAdmin bool) (*models.User, error) {
	return s.setFlag(ctx, admin, targetID, "is_admin", isAdmin)
}

func (s *UserService) setFlag(ctx context.Context, admin *models.User, targetID uint, column string, value bool) (*models.User, error) {
	if err := RequireAdmin(admin); err != nil {
		return nil, err
	}
	if admin.ID == targetID {
		return nil, models.WrapDomainError(models.CodeValidation, models.ErrSelfAdministration)
	}

	user, err := s.userRepo.Update(ctx, targetID, map[string]interface{}{column: value})
	if err != nil {
		return nil, err
	}
	observability.Ctx(ctx).Info().
		Uint("admin_id", admin.ID).
		Uint("target_id", targetID).
		Str("flag", column).
		Bool("value", value).
		Msg("admin changed user flag")
	return user, nil
}
