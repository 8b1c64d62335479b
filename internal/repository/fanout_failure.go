package repository

import (
	"context"
	"fmt"
	"time"

	"feedline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FanoutFailureRepository is the ledger of incomplete fanouts.
type FanoutFailureRepository interface {
	// Record inserts a failure row or bumps the attempt count of an
	// existing one.
	Record(ctx context.Context, post *models.Post, failed int, cause error) error
	// ListPending returns up to limit rows with fewer than maxAttempts
	// attempts, least recently updated first.
	ListPending(ctx context.Context, maxAttempts, limit int) ([]models.FanoutFailure, error)
	Resolve(ctx context.Context, postID string) error
}

type fanoutFailureRepository struct {
	db *gorm.DB
}

// NewFanoutFailureRepository creates a new fanout failure ledger
func NewFanoutFailureRepository(db *gorm.DB) FanoutFailureRepository {
	return &fanoutFailureRepository{db: db}
}

func (r *fanoutFailureRepository) Record(ctx context.Context, post *models.Post, failed int, cause error) error {
	now := time.Now().UTC()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	row := models.FanoutFailure{
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Attempts:  1,
		Failed:    failed,
		LastError: msg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"attempts":   gorm.Expr("fanout_failures.attempts + 1"),
			"failed":     failed,
			"last_error": msg,
			"updated_at": now,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record fanout failure for %s: %w", post.ID, err)
	}
	return nil
}

func (r *fanoutFailureRepository) ListPending(ctx context.Context, maxAttempts, limit int) ([]models.FanoutFailure, error) {
	var rows []models.FanoutFailure
	err := r.db.WithContext(ctx).
		Where("attempts < ?", maxAttempts).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pending fanout failures: %w", err)
	}
	return rows, nil
}

func (r *fanoutFailureRepository) Resolve(ctx context.Context, postID string) error {
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.FanoutFailure{}).Error; err != nil {
		return fmt.Errorf("resolve fanout failure for %s: %w", postID, err)
	}
	return nil
}
