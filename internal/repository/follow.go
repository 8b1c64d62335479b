package repository

import (
	"context"
	"fmt"

	"feedline/internal/models"
	"feedline/internal/observability"

	"gorm.io/gorm"
)

// FollowRepository stores the directed follow graph.
type FollowRepository interface {
	Create(ctx context.Context, follow *models.Follow) error
	Delete(ctx context.Context, followerID, followingID string) error
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	// GetFollowers lists the users following userID, unordered.
	GetFollowers(ctx context.Context, userID string) ([]string, error)
	// GetFollowing lists the users userID follows, unordered.
	GetFollowing(ctx context.Context, userID string) ([]string, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
}

type followRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
	log     *observability.RepoLogger
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{
		db:      db,
		metrics: observability.NewDatabaseMetrics("follows"),
		log:     observability.NewRepoLogger("follows"),
	}
}

func (r *followRepository) Create(ctx context.Context, follow *models.Follow) error {
	defer r.metrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError(fmt.Sprintf("user %s already follows %s", follow.FollowerID, follow.FollowingID))
		}
		r.log.LogError(ctx, err, "create")
		return fmt.Errorf("create follow %s->%s: %w", follow.FollowerID, follow.FollowingID, err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"follower_id": follow.FollowerID, "following_id": follow.FollowingID})
	return nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID string) error {
	defer r.metrics.TrackQuery("delete")()

	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "delete")
		return fmt.Errorf("delete follow %s->%s: %w", followerID, followingID, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Follow", followerID+"->"+followingID)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"follower_id": followerID, "following_id": followingID})
	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	defer r.metrics.TrackQuery("exists")()

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check follow %s->%s: %w", followerID, followingID, err)
	}
	return count > 0, nil
}

func (r *followRepository) GetFollowers(ctx context.Context, userID string) ([]string, error) {
	return r.pluck(ctx, "get_followers", "follower_id", "following_id", userID)
}

func (r *followRepository) GetFollowing(ctx context.Context, userID string) ([]string, error) {
	return r.pluck(ctx, "get_following", "following_id", "follower_id", userID)
}

func (r *followRepository) pluck(ctx context.Context, op, column, filter, userID string) ([]string, error) {
	defer r.metrics.TrackQuery(op)()

	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where(filter+" = ?", userID).
		Pluck(column, &ids).Error
	if err != nil {
		r.log.LogError(ctx, err, op)
		return nil, fmt.Errorf("%s for %s: %w", op, userID, err)
	}
	return ids, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, "following_id", userID)
}

func (r *followRepository) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, "follower_id", userID)
}

func (r *followRepository) count(ctx context.Context, filter, userID string) (int64, error) {
	defer r.metrics.TrackQuery("count")()

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where(filter+" = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count follows for %s: %w", userID, err)
	}
	return n, nil
}
