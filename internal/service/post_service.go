package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"feedline/internal/idgen"
	"feedline/internal/models"
	"feedline/internal/repository"
)

// TimelineWriter is the write path a new post goes through after it is saved.
type TimelineWriter interface {
	CreateFanout(ctx context.Context, post *models.Post) error
}

type PostService struct {
	postRepo  repository.PostRepository
	timelines TimelineWriter
	now       func() time.Time
}

type CreatePostInput struct {
	AuthorID string
	Content  string
	ImageRef *string
}

func NewPostService(postRepo repository.PostRepository, timelines TimelineWriter) *PostService {
	return &PostService{
		postRepo:  postRepo,
		timelines: timelines,
		now:       time.Now,
	}
}

// CreatePost saves a post and writes it to its author's timeline. Follower
// fanout failures are reported elsewhere and do not fail the call.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.AuthorID) == "" {
		return nil, models.NewValidationError("userId is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(in.Content) > models.MaxPostLength {
		return nil, models.NewValidationError(fmt.Sprintf("Content must be at most %d characters", models.MaxPostLength))
	}

	var imageRef *string
	if in.ImageRef != nil && strings.TrimSpace(*in.ImageRef) != "" {
		ref := strings.TrimSpace(*in.ImageRef)
		if u, err := url.ParseRequestURI(ref); err != nil || u.Host == "" {
			return nil, models.NewValidationError("imageUrl must be an absolute URL")
		}
		imageRef = &ref
	}

	id, err := idgen.NewPostID()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	post := &models.Post{
		ID:        id,
		AuthorID:  in.AuthorID,
		Content:   in.Content,
		ImageRef:  imageRef,
		CreatedAt: s.now().UTC(),
	}
	if err := s.postRepo.Save(ctx, post); err != nil {
		return nil, err
	}

	if err := s.timelines.CreateFanout(ctx, post); err != nil {
		return nil, fmt.Errorf("add post %s to author timeline: %w", post.ID, err)
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if !idgen.IsPostID(id) {
		return nil, models.NewValidationError("Invalid post ID")
	}
	return s.postRepo.GetByID(ctx, id)
}

// DeletePost removes a post owned by userID. Timeline entries stay behind
// and are skipped at read time.
func (s *PostService) DeletePost(ctx context.Context, id, userID string) error {
	if userID == "" {
		return models.NewValidationError("userId is required")
	}
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewForbiddenError("Only the author can delete this post")
	}
	return s.postRepo.Delete(ctx, id)
}
