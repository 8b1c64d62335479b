package server

import (
	"context"

	"feedline/internal/models"
	"feedline/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockTimelineReader struct {
	mock.Mock
}

func (m *MockTimelineReader) ReadTimeline(ctx context.Context, userID, cursor string, limit int) (*models.Timeline, error) {
	args := m.Called(ctx, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timeline), args.Error(1)
}

type MockPostManager struct {
	mock.Mock
}

func (m *MockPostManager) CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostManager) GetPost(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostManager) DeletePost(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

type MockFollowManager struct {
	mock.Mock
}

func (m *MockFollowManager) Follow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	args := m.Called(ctx, followerID, followingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Follow), args.Error(1)
}

func (m *MockFollowManager) Unfollow(ctx context.Context, followerID, followingID string) error {
	args := m.Called(ctx, followerID, followingID)
	return args.Error(0)
}

func (m *MockFollowManager) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(ctx, followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowManager) GetFollowers(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockFollowManager) GetFollowing(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockFollowManager) GetCounts(ctx context.Context, userID string) (*models.FollowCounts, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FollowCounts), args.Error(1)
}

type MockLikeManager struct {
	mock.Mock
}

func (m *MockLikeManager) Like(ctx context.Context, postID, userID string) (*models.LikeStatus, error) {
	args := m.Called(ctx, postID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LikeStatus), args.Error(1)
}

func (m *MockLikeManager) Unlike(ctx context.Context, postID, userID string) (*models.LikeStatus, error) {
	args := m.Called(ctx, postID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LikeStatus), args.Error(1)
}

func (m *MockLikeManager) Status(ctx context.Context, postID, userID string) (*models.LikeStatus, error) {
	args := m.Called(ctx, postID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LikeStatus), args.Error(1)
}
