// Package server contains the HTTP handlers and routing for the PoetPortal API.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	_ "poetportal/docs" // swagger docs
	"poetportal/internal/auth"
	"poetportal/internal/cache"
	"poetportal/internal/config"
	"poetportal/internal/middleware"
	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/repository"
	"poetportal/internal/service"
	"poetportal/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	store          storage.Storage
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	issuer         *auth.Issuer
	blacklist      *cache.TokenBlacklist

	userRepo repository.UserRepository

	userService    *service.UserService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	likeService    *service.LikeService
	feedService    *service.FeedService
	avatarService  *service.AvatarService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.Storage) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is required")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	issuer := auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		store:          store,
		promMiddleware: middleware.InitMetrics("poetportal-api"),
		issuer:         issuer,
		blacklist:      cache.NewTokenBlacklist(redisClient),
		userRepo:       userRepo,
	}

	s.userService = service.NewUserService(userRepo, auth.NewHasher(auth.DefaultParams), issuer)
	s.postService = service.NewPostService(postRepo)
	s.commentService = service.NewCommentService(commentRepo)
	s.followService = service.NewFollowService(followRepo, userRepo)
	s.likeService = service.NewLikeService(likeRepo)
	s.feedService = service.NewFeedService(postRepo, commentRepo, userRepo, likeRepo, followRepo)
	if store != nil {
		s.avatarService = service.NewAvatarService(userRepo, store)
	}

	return s, nil
}

// NewApp returns a fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "PoetPortal API",
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders errors that escaped the handlers, such as unknown
// routes or oversized bodies, in the API error format.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	observability.Ctx(c.UserContext()).Error().Err(err).Msg("unhandled error")
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}

func (s *Server) rateLimited() bool {
	return s.config.Env != "test"
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if s.rateLimited() {
		app.Use(limiter.New(limiter.Config{
			Max:        100,
			Expiration: 1 * time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
					Error: "Too many requests, please try again later.",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.LocalStorage); ok && strings.HasPrefix(s.config.StoragePublicBaseURL, "/") {
		app.Static(s.config.StoragePublicBaseURL, local.BasePath(), fiber.Static{MaxAge: 3600})
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	register := []fiber.Handler{}
	login := []fiber.Handler{}
	if s.rateLimited() {
		register = append(register, middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"))
		login = append(login, middleware.RateLimit(s.redis, 10, time.Minute, "login"))
	}
	api.Post("/register", append(register, s.Register)...)
	api.Post("/login", append(login, s.Login)...)
	api.Post("/logout", s.AuthRequired(), s.Logout)

	api.Get("/user", s.AuthRequired(), s.GetCurrentUser)
	api.Put("/user", s.AuthRequired(), s.UpdateCurrentUser)
	api.Put("/user/avatar", s.AuthRequired(), s.UpdateAvatar)

	posts := api.Group("/posts")
	posts.Get("/", s.OptionalAuth(), s.GetPosts)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Get("/:id", s.OptionalAuth(), s.GetPost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)
	posts.Post("/:id/comments", s.AuthRequired(), s.CreateComment)

	api.Delete("/comments/:id", s.AuthRequired(), s.DeleteComment)

	api.Post("/likes", s.AuthRequired(), s.ToggleLike)
	api.Get("/likes", s.OptionalAuth(), s.GetLikeState)

	users := api.Group("/users")
	users.Get("/:id", s.GetUserProfile)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following-list", s.GetFollowingList)
	users.Get("/:id/follow-status", s.AuthRequired(), s.GetFollowStatus)
	users.Post("/:id/follow", s.AuthRequired(), s.FollowUser)
	users.Delete("/:id/follow", s.AuthRequired(), s.UnfollowUser)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/users", s.AdminListUsers)
	admin.Patch("/users/:id", s.AdminUpdateUser)
	admin.Post("/users/:id/suspend", s.AdminSetSuspended(true))
	admin.Post("/users/:id/unsuspend", s.AdminSetSuspended(false))
	admin.Post("/users/:id/promote-admin", s.AdminSetAdmin(true))
	admin.Post("/users/:id/demote-admin", s.AdminSetAdmin(false))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and, when configured, Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.L().Error().Err(err).Msg("error shutting down HTTP server")
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			observability.L().Error().Err(cerr).Msg("error closing sql DB")
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			observability.L().Error().Err(err).Msg("error closing redis client")
		}
	}

	return nil
}
