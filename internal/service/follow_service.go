package service

import (
	"context"
	"strings"
	"time"

	"feedline/internal/models"
	"feedline/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
}

func NewFollowService(followRepo repository.FollowRepository) *FollowService {
	return &FollowService{followRepo: followRepo}
}

func validatePair(followerID, followingID string) error {
	if strings.TrimSpace(followerID) == "" || strings.TrimSpace(followingID) == "" {
		return models.NewValidationError("followerId and userId are required")
	}
	return nil
}

// Follow makes followerID a follower of followingID. Existing posts are
// not backfilled; the follower sees posts created from now on.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	if err := validatePair(followerID, followingID); err != nil {
		return nil, err
	}
	if followerID == followingID {
		return nil, models.NewValidationError("Cannot follow yourself")
	}

	follow := &models.Follow{
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.followRepo.Create(ctx, follow); err != nil {
		return nil, err
	}
	return follow, nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID string) error {
	if err := validatePair(followerID, followingID); err != nil {
		return err
	}
	return s.followRepo.Delete(ctx, followerID, followingID)
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	if err := validatePair(followerID, followingID); err != nil {
		return false, err
	}
	return s.followRepo.Exists(ctx, followerID, followingID)
}

func (s *FollowService) GetFollowers(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	return s.followRepo.GetFollowers(ctx, userID)
}

func (s *FollowService) GetFollowing(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	return s.followRepo.GetFollowing(ctx, userID)
}

func (s *FollowService) GetCounts(ctx context.Context, userID string) (*models.FollowCounts, error) {
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.FollowCounts{UserID: userID, Followers: followers, Following: following}, nil
}
