package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidshare/backend/internal/accounts"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/config"
	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/engagement"
	"github.com/vidshare/backend/internal/events"
	"github.com/vidshare/backend/internal/graph"
	"github.com/vidshare/backend/internal/handlers"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/storage"
	"github.com/vidshare/backend/internal/videos"
)

type userStore interface {
	auth.CredentialStore
	accounts.ProfileStore
	graph.UserReader
	videos.HistoryRecorder
}

type videoStore interface {
	videos.VideoStore
	graph.VideoReader
}

type likeStore interface {
	engagement.LikeStore
	graph.LikeReader
}

type subscriptionStore interface {
	engagement.SubscriptionStore
	graph.SubscriptionReader
}

type stores struct {
	users    userStore
	videos   videoStore
	comments videos.CommentStore
	likes    likeStore
	subs     subscriptionStore
}

func newStores(pool db.Pool, cfg config.Config) (stores, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		mem := repositories.NewMemoryStore()
		return stores{users: mem.Users(), videos: mem.Videos(), comments: mem.Comments(), likes: mem, subs: mem}, nil
	case config.StoragePostgres, "":
		if pool == nil {
			return stores{}, errors.New("postgres storage requires a database pool")
		}
		return stores{
			users:    repositories.NewPostgresUserRepository(pool),
			videos:   repositories.NewPostgresVideoRepository(pool),
			comments: repositories.NewPostgresCommentRepository(pool),
			likes:    repositories.NewPostgresLikeRepository(pool),
			subs:     repositories.NewPostgresSubscriptionRepository(pool),
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background workers and closes
// broker and cache connections.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	logger := slog.Default()

	st, err := newStores(pool, cfg)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		Issuer:        "vidshare",
	})
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure token service: %w", err)
	}
	sessions := auth.NewManager(tokens, auth.NewBcryptHasher(cfg.Auth.BcryptCost), st.users)

	var closers []func(context.Context) error

	var (
		assets  videos.AssetStorage
		media   accounts.MediaStore
		cleanup *videos.AssetCleaner
	)
	if cfg.ObjectStore.Bucket != "" {
		s3, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
		}
		assets, media = s3, s3
		cleanup = videos.NewAssetCleaner(s3, videos.AssetCleanerConfig{
			QueueSize: cfg.Cleanup.QueueSize,
			Workers:   cfg.Cleanup.Workers,
			Timeout:   cfg.Cleanup.Timeout,
		}, logger)
		closers = append(closers, cleanup.Shutdown)
	} else {
		logger.Warn("object storage not configured, uploads are disabled")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQPURL, "")
		if err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("connect event broker: %w", err)
		}
		publisher = amqpPublisher
		closers = append(closers, func(context.Context) error { return amqpPublisher.Close() })
	}

	var limiter handlers.RateLimiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = middleware.NewRedisRateLimiter(client, "vidshare:ratelimit", cfg.RateLimit.RequestsPerMinute, time.Minute, cfg.RateLimit.Burst)
		closers = append(closers, func(context.Context) error { return client.Close() })
	} else {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute, cfg.RateLimit.Burst, 10*time.Minute)
	}

	var queue cleanupQueue = discardQueue{}
	if cleanup != nil {
		queue = cleanup
	}

	deps := handlers.Dependencies{
		Sessions:     sessions,
		Accounts:     accounts.NewService(st.users, media, queue),
		Graph:        graph.NewAggregator(st.users, st.videos, st.subs, st.likes),
		Engagement:   engagement.NewService(st.likes, st.subs, st.users, publisher),
		Videos:       videos.NewService(st.videos, st.comments, st.users, assets, queue),
		Limiter:      limiter,
		CookieSecure: cfg.Auth.CookieSecure,
	}
	if pool != nil {
		deps.DB = pool
	}

	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	return deps, shutdown, nil
}

type cleanupQueue interface {
	Enqueue(ctx context.Context, locations ...string) error
}

// discardQueue is used when no object store is configured.
type discardQueue struct{}

func (discardQueue) Enqueue(context.Context, ...string) error { return nil }
