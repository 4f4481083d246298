package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/models"
)

// withSerializableTx runs fn in a SERIALIZABLE transaction. A serialization
// failure or a unique violation means a concurrent writer touched the same
// edge first, and is reported as ErrConflict.
func withSerializableTx(ctx context.Context, pool db.Pool, fn func(pgx.Tx) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return classifyTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return classifyTxError(err)
	}
	return nil
}

func classifyTxError(err error) error {
	switch pgCode(err) {
	case pgSerializationFailure, pgUniqueViolation:
		return ErrConflict
	case pgForeignKeyViolation:
		return ErrNotFound
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("toggle edge: %w", err)
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// ToggleLike deletes the like when present and inserts it otherwise.
func (r *PostgresLikeRepository) ToggleLike(ctx context.Context, like models.Like) (bool, error) {
	var liked bool
	err := withSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            DELETE FROM likes
            WHERE liked_by = $1 AND target_kind = $2 AND target_id = $3
        `, like.LikedBy, string(like.TargetKind), like.TargetID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			liked = false
			return nil
		}

		if like.ID == "" {
			like.ID = uuid.NewString()
		}
		if like.CreatedAt.IsZero() {
			like.CreatedAt = time.Now().UTC()
		}
		if like.UpdatedAt.IsZero() {
			like.UpdatedAt = like.CreatedAt
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO likes (id, target_kind, target_id, liked_by, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, like.ID, string(like.TargetKind), like.TargetID, like.LikedBy, like.CreatedAt, like.UpdatedAt); err != nil {
			return err
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

// ListVideoLikes returns likerID's video likes, most recently updated first.
func (r *PostgresLikeRepository) ListVideoLikes(ctx context.Context, likerID string) ([]models.Like, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, target_kind, target_id, liked_by, created_at, updated_at
        FROM likes
        WHERE liked_by = $1 AND target_kind = 'video'
        ORDER BY updated_at DESC, id
    `, likerID)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()

	var likes []models.Like
	for rows.Next() {
		var (
			like models.Like
			kind string
		)
		if err := rows.Scan(&like.ID, &kind, &like.TargetID, &like.LikedBy, &like.CreatedAt, &like.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		like.TargetKind = models.LikeTarget(kind)
		likes = append(likes, like)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}
	return likes, nil
}

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// ToggleSubscription deletes the subscription when present and inserts it otherwise.
func (r *PostgresSubscriptionRepository) ToggleSubscription(ctx context.Context, sub models.Subscription) (bool, error) {
	var subscribed bool
	err := withSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            DELETE FROM subscriptions
            WHERE subscriber_id = $1 AND channel_id = $2
        `, sub.SubscriberID, sub.ChannelID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			subscribed = false
			return nil
		}

		if sub.CreatedAt.IsZero() {
			sub.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
            VALUES ($1, $2, $3)
        `, sub.SubscriberID, sub.ChannelID, sub.CreatedAt); err != nil {
			return err
		}
		subscribed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return subscribed, nil
}

// CountSubscribers counts the subscribers of channelID.
func (r *PostgresSubscriptionRepository) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM subscriptions WHERE channel_id = $1`, channelID)
}

// CountSubscriptions counts the channels subscriberID follows.
func (r *PostgresSubscriptionRepository) CountSubscriptions(ctx context.Context, subscriberID string) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM subscriptions WHERE subscriber_id = $1`, subscriberID)
}

// IsSubscribed reports whether the edge subscriberID -> channelID exists.
func (r *PostgresSubscriptionRepository) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if subscriberID == "" {
		return false, nil
	}

	n, err := r.count(ctx, `
        SELECT count(*) FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresSubscriptionRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var n int64
	if err := conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

var _ LikeRepository = (*PostgresLikeRepository)(nil)
var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
