// Package bootstrap wires storage, repositories and services from config.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedline/internal/cache"
	"feedline/internal/config"
	"feedline/internal/database"
	"feedline/internal/fanout"
	"feedline/internal/middleware"
	"feedline/internal/repository"
	"feedline/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// InlineFanout forces the inline executor regardless of FANOUT_MODE.
	// The fanout worker sets it: it runs fanout itself.
	InlineFanout bool
}

// Runtime holds the wired dependencies shared by the server, the fanout
// worker and the seeder.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	Posts     repository.PostRepository
	Follows   repository.FollowRepository
	Likes     repository.LikeRepository
	Timelines repository.TimelineRepository
	Ledger    repository.FanoutFailureRepository

	TimelineService   *service.TimelineService
	PostService       *service.PostService
	FollowService     *service.FollowService
	LikeService       *service.LikeService
	RedeliveryService *service.RedeliveryService

	closers []func() error
}

// InitRuntime connects to the database and Redis and builds the runtime.
// Redis is optional unless the timeline index lives in it.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.InitRedis(cfg.RedisURL)
		if err != nil {
			if cfg.TimelineBackend == config.TimelineBackendRedis {
				return nil, fmt.Errorf("redis required for timeline backend: %w", err)
			}
			middleware.Logger.Warn("redis unavailable, continuing without post cache",
				slog.String("error", err.Error()))
			rdb = nil
		}
	}

	return NewRuntime(cfg, db, rdb, opts)
}

// NewRuntime builds a runtime from already-initialized storage. Use this in
// tests or when the caller owns the connections.
func NewRuntime(cfg *config.Config, db *gorm.DB, rdb *redis.Client, opts Options) (*Runtime, error) {
	rt := &Runtime{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Follows: repository.NewFollowRepository(db),
		Likes:   repository.NewLikeRepository(db),
		Ledger:  repository.NewFanoutFailureRepository(db),
	}

	rt.Posts = repository.NewPostRepository(db)
	if rdb != nil {
		ttl := time.Duration(cfg.PostCacheTTLSeconds) * time.Second
		rt.Posts = repository.NewCachedPostRepository(rt.Posts, rdb, ttl)
	}

	timelineOpts := repository.TimelineOptions{
		BatchSize:   cfg.TimelineBatchSize,
		Parallelism: cfg.FanoutParallelism,
	}
	switch cfg.TimelineBackend {
	case config.TimelineBackendRedis:
		if rdb == nil {
			return nil, errors.New("timeline backend redis requires a redis client")
		}
		rt.Timelines = repository.NewRedisTimelineRepository(rdb, timelineOpts)
	default:
		rt.Timelines = repository.NewTimelineRepository(db, timelineOpts)
	}

	timelineOptions := []service.TimelineOption{
		service.WithLikeCounter(rt.Likes),
		service.WithReporter(service.NewLedgerReporter(rt.Ledger)),
	}
	if cfg.FanoutMode == config.FanoutModeKafka && !opts.InlineFanout {
		exec := fanout.NewKafkaExecutor(fanout.NewKafkaWriter(cfg.Brokers(), cfg.KafkaFanoutTopic), cfg.KafkaFanoutTopic)
		rt.closers = append(rt.closers, exec.Close)
		timelineOptions = append(timelineOptions, service.WithExecutor(exec, config.FanoutModeKafka))
	}

	rt.TimelineService = service.NewTimelineService(rt.Timelines, rt.Follows, rt.Posts, timelineOptions...)
	rt.PostService = service.NewPostService(rt.Posts, rt.TimelineService)
	rt.FollowService = service.NewFollowService(rt.Follows)
	rt.LikeService = service.NewLikeService(rt.Likes, rt.Posts)
	rt.RedeliveryService = service.NewRedeliveryService(rt.Ledger, rt.Posts, rt.TimelineService,
		cfg.FanoutMaxAttempts, cfg.FanoutRedeliveryBatch)

	return rt, nil
}

// Close releases the Kafka writer, the database pool and the Redis client.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		errs = append(errs, c())
	}
	if sqlDB, err := rt.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	return errors.Join(errs...)
}
