package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"poetportal/internal/auth"
	"poetportal/internal/cache"
	"poetportal/internal/config"
	"poetportal/internal/models"
	"poetportal/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-at-least-32-characters!"

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[uint]*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (*models.User, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.User), args.Error(1)
}

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) DeleteCascade(ctx context.Context, id uint, authorize func(*models.Post) error) error {
	args := m.Called(ctx, id, authorize)
	if fn, ok := args.Get(0).(func(context.Context, uint, func(*models.Post) error) error); ok {
		return fn(ctx, id, authorize)
	}
	return args.Error(0)
}

func newMockServer(users *MockUserRepository, posts *MockPostRepository) *Server {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	return &Server{
		config:      &config.Config{Env: "test", JWTSecret: testSecret},
		issuer:      issuer,
		blacklist:   cache.NewTokenBlacklist(nil),
		userRepo:    users,
		userService: service.NewUserService(users, auth.NewHasher(auth.DefaultParams), issuer),
		postService: service.NewPostService(posts),
	}
}

func issueToken(t *testing.T, s *Server, user *models.User) string {
	t.Helper()
	token, _, err := s.issuer.Issue(user)
	require.NoError(t, err)
	return token
}

func signClaims(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    auth.TokenIssuer,
		Audience:  jwt.ClaimStrings{auth.TokenAudience},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        "jti-1",
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestAuthRequired(t *testing.T) {
	alice := &models.User{ID: 1, Username: "alice"}
	suspended := &models.User{ID: 1, Username: "alice", IsSuspended: true}

	tests := []struct {
		name        string
		header      func(s *Server) string
		cookie      bool
		user        *models.User
		userErr     error
		wantStatus  int
		wantMessage string
		wantCode    string
	}{
		{
			name:        "Missing token",
			header:      func(*Server) string { return "" },
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Authorization required",
		},
		{
			name:        "Malformed token",
			header:      func(*Server) string { return "Bearer not-a-jwt" },
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Token is malformed",
		},
		{
			name: "Expired token",
			header: func(*Server) string {
				return "Bearer " + signClaims(t, testSecret, time.Now().Add(-time.Minute))
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Token has expired",
		},
		{
			name: "Foreign signature",
			header: func(*Server) string {
				return "Bearer " + signClaims(t, "some-other-secret-of-enough-length!!", time.Now().Add(time.Hour))
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid token signature",
		},
		{
			name:        "User deleted after issuance",
			header:      func(s *Server) string { return "Bearer " + issueToken(t, s, alice) },
			userErr:     models.NewNotFoundError("User", 1),
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "User no longer exists",
		},
		{
			name:       "Suspended after issuance",
			header:     func(s *Server) string { return "Bearer " + issueToken(t, s, alice) },
			user:       suspended,
			wantStatus: http.StatusForbidden,
			wantCode:   models.CodeAccountSuspended,
		},
		{
			name:       "Valid bearer",
			header:     func(s *Server) string { return "Bearer " + issueToken(t, s, alice) },
			user:       alice,
			wantStatus: http.StatusOK,
		},
		{
			name:       "Valid cookie",
			header:     func(*Server) string { return "" },
			cookie:     true,
			user:       alice,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			if tt.user != nil || tt.userErr != nil {
				users.On("GetByID", mock.Anything, uint(1)).Return(tt.user, tt.userErr)
			}
			s := newMockServer(users, new(MockPostRepository))

			app := fiber.New()
			app.Get("/user", s.AuthRequired(), s.GetCurrentUser)

			req := httptest.NewRequest(http.MethodGet, "/user", nil)
			if h := tt.header(s); h != "" {
				req.Header.Set("Authorization", h)
			}
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: issueToken(t, s, alice)})
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus != http.StatusOK {
				body := decodeError(t, resp)
				if tt.wantMessage != "" {
					assert.Equal(t, tt.wantMessage, body.Error)
				}
				if tt.wantCode != "" {
					assert.Equal(t, tt.wantCode, body.Code)
				}
			} else {
				_ = resp.Body.Close()
			}
			users.AssertExpectations(t)
		})
	}
}

func TestOptionalAuth_NeverRejects(t *testing.T) {
	users := new(MockUserRepository)
	s := newMockServer(users, new(MockPostRepository))

	app := fiber.New()
	app.Get("/whoami", s.OptionalAuth(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": currentUserID(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]uint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Zero(t, body["userID"])
}

func TestAdminRequired(t *testing.T) {
	tests := []struct {
		name       string
		user       *models.User
		wantStatus int
	}{
		{name: "Regular user", user: &models.User{ID: 2, Username: "bob"}, wantStatus: http.StatusForbidden},
		{name: "Admin", user: &models.User{ID: 3, Username: "root", IsAdmin: true}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			users.On("GetByID", mock.Anything, tt.user.ID).Return(tt.user, nil)
			s := newMockServer(users, new(MockPostRepository))

			app := fiber.New()
			app.Get("/admin", s.AuthRequired(), s.AdminRequired(), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			// the admin claim is stale on purpose; the stored row decides
			req.Header.Set("Authorization", "Bearer "+issueToken(t, s, &models.User{ID: tt.user.ID, IsAdmin: !tt.user.IsAdmin}))
			resp, err := app.Test(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestCreatePost(t *testing.T) {
	posts := new(MockPostRepository)
	s := newMockServer(new(MockUserRepository), posts)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	app.Post("/posts", s.CreatePost)

	tests := []struct {
		name           string
		body           string
		mockSetup      func()
		expectedStatus int
	}{
		{
			name: "Success",
			body: `{"content":"The fog comes on little cat feet."}`,
			mockSetup: func() {
				posts.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
					return p.UserID == 1 && p.Title == "The fog comes on little cat feet."
				})).Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Blank content",
			body:           `{"content":"   "}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid JSON",
			body:           `{"content":`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
	posts.AssertExpectations(t)
}

func TestDeletePost(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		owner          uint
		repoErr        error
		expectedStatus int
	}{
		{name: "Owner", path: "/posts/7", owner: 1, expectedStatus: http.StatusOK},
		{name: "Not owner", path: "/posts/7", owner: 2, expectedStatus: http.StatusForbidden},
		{name: "Missing", path: "/posts/7", repoErr: models.NewNotFoundError("Post", 7), expectedStatus: http.StatusNotFound},
		{name: "Bad ID", path: "/posts/abc", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			posts := new(MockPostRepository)
			posts.On("DeleteCascade", mock.Anything, uint(7), mock.Anything).
				Return(func(_ context.Context, _ uint, authorize func(*models.Post) error) error {
					if tt.repoErr != nil {
						return tt.repoErr
					}
					return authorize(&models.Post{ID: 7, UserID: tt.owner})
				}).Maybe()
			s := newMockServer(new(MockUserRepository), posts)

			app := fiber.New()
			app.Use(func(c *fiber.Ctx) error {
				c.Locals("userID", uint(1))
				return c.Next()
			})
			app.Delete("/posts/:id", s.DeletePost)

			resp, err := app.Test(httptest.NewRequest(http.MethodDelete, tt.path, nil))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{query: "", wantLimit: 20, wantOffset: 0},
		{query: "?limit=5&offset=10", wantLimit: 5, wantOffset: 10},
		{query: "?limit=1000", wantLimit: 100, wantOffset: 0},
		{query: "?limit=-3&offset=-1", wantLimit: 20, wantOffset: 0},
	}

	for _, tt := range tests {
		app := fiber.New()
		var got Pagination
		app.Get("/", func(c *fiber.Ctx) error {
			got = parsePagination(c, defaultPaginationLimit)
			return nil
		})
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, tt.wantLimit, got.Limit, tt.query)
		assert.Equal(t, tt.wantOffset, got.Offset, tt.query)
	}
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "comment ID", humanizeParam("commentId"))
	assert.Equal(t, "parent comment ID", humanizeParam("parentCommentId"))
	assert.Equal(t, "slug", humanizeParam("slug"))
}
