// Package server contains the HTTP handlers for the timeline, post, follow
// and like endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	_ "feedline/docs" // swagger docs
	"feedline/internal/bootstrap"
	"feedline/internal/config"
	"feedline/internal/database"
	"feedline/internal/middleware"
	"feedline/internal/models"
	"feedline/internal/service"

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

type timelineReader interface {
	ReadTimeline(ctx context.Context, userID, cursor string, limit int) (*models.Timeline, error)
}

type postManager interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	DeletePost(ctx context.Context, id, userID string) error
}

type followManager interface {
	Follow(ctx context.Context, followerID, followingID string) (*models.Follow, error)
	Unfollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	GetFollowers(ctx context.Context, userID string) ([]string, error)
	GetFollowing(ctx context.Context, userID string) ([]string, error)
	GetCounts(ctx context.Context, userID string) (*models.FollowCounts, error)
}

type likeManager interface {
	Like(ctx context.Context, postID, userID string) (*models.LikeStatus, error)
	Unlike(ctx context.Context, postID, userID string) (*models.LikeStatus, error)
	Status(ctx context.Context, postID, userID string) (*models.LikeStatus, error)
}

// Server holds all dependencies and provides handlers
type Server struct {
	config    *config.Config
	db        *gorm.DB
	redis     *redis.Client
	runtime   *bootstrap.Runtime
	timelines timelineReader
	posts     postManager
	follows   followManager
	likes     likeManager
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return newServer(rt), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when the caller owns the connections.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	rt, err := bootstrap.NewRuntime(cfg, db, redisClient, bootstrap.Options{})
	if err != nil {
		return nil, fmt.Errorf("build runtime: %w", err)
	}
	return newServer(rt), nil
}

func newServer(rt *bootstrap.Runtime) *Server {
	return &Server{
		config:    rt.Config,
		db:        rt.DB,
		redis:     rt.Redis,
		runtime:   rt,
		timelines: rt.TimelineService,
		posts:     rt.PostService,
		follows:   rt.FollowService,
		likes:     rt.LikeService,
	}
}

// Runtime exposes the wired dependencies, e.g. for scheduling redelivery.
func (s *Server) Runtime() *bootstrap.Runtime {
	return s.runtime
}

// NewApp creates the Fiber app with the API error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   "Feedline API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.InitMetrics(app, "feedline-api"))

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, " + middleware.ActingUserHeader,
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Timeline reads are also served outside /api.
	app.Get("/timeline/:userId", s.GetTimeline)

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/timeline/:userId", s.GetTimeline)

	posts := api.Group("/posts")
	postLimit := 30
	if s.config != nil && s.config.PostRateLimit > 0 {
		postLimit = s.config.PostRateLimit
	}
	posts.Post("/", middleware.RateLimit(s.redis, postLimit, time.Minute, "create_post"), s.CreatePost)
	// Specific /:id/:resource routes before the generic /:id route
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Get("/:id/like", s.GetLikeStatus)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	users := api.Group("/users")
	users.Post("/:userId/follow", s.FollowUser)
	users.Delete("/:userId/follow", s.UnfollowUser)
	users.Get("/:userId/followers", s.GetFollowers)
	users.Get("/:userId/following", s.GetFollowing)
	users.Get("/:userId/follow-status", s.GetFollowStatus)
	users.Get("/:userId/follow-counts", s.GetFollowCounts)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis only gates
// readiness when it holds the timeline index.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisRequired := s.config != nil && s.config.TimelineBackend == config.TimelineBackendRedis
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || (redisRequired && redisStatus != "healthy") {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown releases runtime resources. The Fiber app is shut down by the caller.
func (s *Server) Shutdown(_ context.Context) error {
	if s.runtime == nil {
		return nil
	}
	err := s.runtime.Close()
	middleware.Logger.Info("Server shutdown complete")
	return err
}
