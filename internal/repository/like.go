package repository

import (
	"context"
	"fmt"

	"feedline/internal/models"
	"feedline/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository stores likes. Like and Unlike are idempotent.
type LikeRepository interface {
	Like(ctx context.Context, postID, userID string) error
	Unlike(ctx context.Context, postID, userID string) error
	HasLiked(ctx context.Context, postID, userID string) (bool, error)
	CountByPost(ctx context.Context, postID string) (int64, error)
	// CountByPosts returns like counts keyed by post ID. Posts without
	// likes are absent from the map.
	CountByPosts(ctx context.Context, postIDs []string) (map[string]int64, error)
}

type likeRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db, metrics: observability.NewDatabaseMetrics("likes")}
}

func (r *likeRepository) Like(ctx context.Context, postID, userID string) error {
	defer r.metrics.TrackQuery("like")()

	like := models.Like{PostID: postID, UserID: userID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
		return fmt.Errorf("like post %s by %s: %w", postID, userID, err)
	}
	return nil
}

func (r *likeRepository) Unlike(ctx context.Context, postID, userID string) error {
	defer r.metrics.TrackQuery("unlike")()

	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{}).Error
	if err != nil {
		return fmt.Errorf("unlike post %s by %s: %w", postID, userID, err)
	}
	return nil
}

func (r *likeRepository) HasLiked(ctx context.Context, postID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check like on %s by %s: %w", postID, userID, err)
	}
	return count > 0, nil
}

func (r *likeRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count likes on %s: %w", postID, err)
	}
	return count, nil
}

func (r *likeRepository) CountByPosts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	defer r.metrics.TrackQuery("count_by_posts")()

	counts := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count likes on %d posts: %w", len(postIDs), err)
	}
	for _, row := range rows {
		counts[row.PostID] = row.Count
	}
	return counts, nil
}
