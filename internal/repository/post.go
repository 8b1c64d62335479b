package repository

import (
	"context"
	"errors"
	"fmt"

	"feedline/internal/models"
	"feedline/internal/observability"

	"gorm.io/gorm"
)

// maxMultiGet bounds the ids fetched by one multi-get query.
const maxMultiGet = 100

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Save(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// GetByIDs returns the posts that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]*models.Post, error)
	Delete(ctx context.Context, id string) error
}

// postRepository implements PostRepository
type postRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
	log     *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{
		db:      db,
		metrics: observability.NewDatabaseMetrics("posts"),
		log:     observability.NewRepoLogger("posts"),
	}
}

func (r *postRepository) Save(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("save")()

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "save")
		if isUniqueViolation(err) {
			return models.NewConflictError(fmt.Sprintf("post %s already exists", post.ID))
		}
		return fmt.Errorf("save post %s: %w", post.ID, err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "author_id": post.AuthorID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer r.metrics.TrackQuery("get_by_id")()

	var post models.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Post", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return &post, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Post, error) {
	defer r.metrics.TrackQuery("get_by_ids")()

	posts := make([]*models.Post, 0, len(ids))
	for start := 0; start < len(ids); start += maxMultiGet {
		batch := ids[start:min(start+maxMultiGet, len(ids))]

		var found []*models.Post
		if err := r.db.WithContext(ctx).Where("id IN ?", batch).Find(&found).Error; err != nil {
			r.log.LogError(ctx, err, "get_by_ids")
			return nil, fmt.Errorf("multi-get %d posts: %w", len(batch), err)
		}
		posts = append(posts, found...)
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	defer r.metrics.TrackQuery("delete")()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "delete")
		return fmt.Errorf("delete post %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}
