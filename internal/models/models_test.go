package models

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"single line", "hello", "hello"},
		{"first line only", "  Ode to rain\nsecond line", "Ode to rain"},
		{"windows newline", "Title\r\nbody", "Title"},
		{"truncated", strings.Repeat("a", 60), strings.Repeat("a", 50)},
		{"counts runes", strings.Repeat("é", 55), strings.Repeat("é", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.content))
		})
	}
}

func TestParseLikeTarget(t *testing.T) {
	target, err := ParseLikeTarget("comment", 7)
	require.NoError(t, err)
	assert.Equal(t, CommentTarget(7), target)
	assert.Equal(t, "comment:7", target.String())

	_, err = ParseLikeTarget("poem", 7)
	assert.True(t, errors.Is(err, ErrInvalidLikeTarget))
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = ParseLikeTarget("post", 0)
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, fiber.StatusBadRequest, StatusForError(WrapDomainError(CodeConflict, ErrUsernameTaken)))
	assert.Equal(t, fiber.StatusForbidden, StatusForError(NewAccountSuspendedError()))
	assert.Equal(t, fiber.StatusNotFound, StatusForError(NewNotFoundError("Post", 3)))
	assert.Equal(t, fiber.StatusUnauthorized, StatusForError(NewUnauthorizedError("no")))
	assert.Equal(t, fiber.StatusInternalServerError, StatusForError(errors.New("boom")))
}

func TestRespondWithError_HidesInternalDetail(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError,
			NewInternalError(errors.New("pq: connection refused")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "connection refused")
	assert.Contains(t, string(body), CodeInternal)
}
