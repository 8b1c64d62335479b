package service

import (
	"context"

	"feedline/internal/idgen"
	"feedline/internal/models"
	"feedline/internal/repository"
)

// PostReader is the single-post lookup used to check a like target exists.
type PostReader interface {
	GetByID(ctx context.Context, id string) (*models.Post, error)
}

type LikeService struct {
	likeRepo repository.LikeRepository
	posts    PostReader
}

func NewLikeService(likeRepo repository.LikeRepository, posts PostReader) *LikeService {
	return &LikeService{likeRepo: likeRepo, posts: posts}
}

func (s *LikeService) validate(postID, userID string) error {
	if !idgen.IsPostID(postID) {
		return models.NewValidationError("Invalid post ID")
	}
	if userID == "" {
		return models.NewValidationError("userId is required")
	}
	return nil
}

// Like is idempotent: liking twice leaves one like.
func (s *LikeService) Like(ctx context.Context, postID, userID string) (*models.LikeStatus, error) {
	if err := s.validate(postID, userID); err != nil {
		return nil, err
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.likeRepo.Like(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.status(ctx, postID, true)
}

func (s *LikeService) Unlike(ctx context.Context, postID, userID string) (*models.LikeStatus, error) {
	if err := s.validate(postID, userID); err != nil {
		return nil, err
	}
	if err := s.likeRepo.Unlike(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.status(ctx, postID, false)
}

func (s *LikeService) Status(ctx context.Context, postID, userID string) (*models.LikeStatus, error) {
	if err := s.validate(postID, userID); err != nil {
		return nil, err
	}
	liked, err := s.likeRepo.HasLiked(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, postID, liked)
}

func (s *LikeService) status(ctx context.Context, postID string, liked bool) (*models.LikeStatus, error) {
	count, err := s.likeRepo.CountByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &models.LikeStatus{PostID: postID, Liked: liked, Count: count}, nil
}
