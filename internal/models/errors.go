package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeAccountSuspended = "ACCOUNT_SUSPENDED"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
)

// Domain failures. They are wrapped in an AppError so callers can match them
// with errors.Is while handlers still see a code.
var (
	ErrSelfFollow         = errors.New("you cannot follow yourself")
	ErrSelfLike           = errors.New("you cannot like your own content")
	ErrInvalidParent      = errors.New("parent comment does not belong to this post")
	ErrNotFollowing       = errors.New("you are not following this user")
	ErrNotLiked           = errors.New("you have not liked this content")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidLikeTarget  = errors.New("targetType must be 'post' or 'comment'")
	ErrSelfAdministration = errors.New("admins cannot change their own suspension or admin status")
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// WrapDomainError attaches code to one of the domain sentinels above.
func WrapDomainError(code string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Err:     err,
	}
}

// NewAccountSuspendedError is returned by the auth gate and login.
func NewAccountSuspendedError() *AppError {
	return WrapDomainError(CodeAccountSuspended, ErrAccountSuspended)
}

// ErrorCode returns the AppError code found in err's chain, or CodeInternal.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// StatusForError maps an error to the HTTP status the API reports for it.
func StatusForError(err error) int {
	switch ErrorCode(err) {
	case CodeValidation, CodeConflict:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden, CodeAccountSuspended:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response. Internal errors
// never expose their cause.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	switch {
	case errors.As(err, &appErr) && appErr.Code != CodeInternal:
		response = ErrorResponse{Error: appErr.Message, Code: appErr.Code}
	case status >= fiber.StatusInternalServerError:
		response = ErrorResponse{Error: "Internal server error", Code: CodeInternal}
	default:
		response = ErrorResponse{Error: err.Error()}
	}

	return c.Status(status).JSON(response)
}
