package service

import (
	"context"
	"testing"

	"feedline/internal/models"
	"feedline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	likes map[string]map[string]bool
}

func newLikeRepoStub() *likeRepoStub {
	return &likeRepoStub{likes: make(map[string]map[string]bool)}
}

func (s *likeRepoStub) Like(_ context.Context, postID, userID string) error {
	if s.likes[postID] == nil {
		s.likes[postID] = make(map[string]bool)
	}
	s.likes[postID][userID] = true
	return nil
}

func (s *likeRepoStub) Unlike(_ context.Context, postID, userID string) error {
	delete(s.likes[postID], userID)
	return nil
}

func (s *likeRepoStub) HasLiked(_ context.Context, postID, userID string) (bool, error) {
	return s.likes[postID][userID], nil
}

func (s *likeRepoStub) CountByPost(_ context.Context, postID string) (int64, error) {
	return int64(len(s.likes[postID])), nil
}

func (s *likeRepoStub) CountByPosts(_ context.Context, postIDs []string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, id := range postIDs {
		if n := len(s.likes[id]); n > 0 {
			out[id] = int64(n)
		}
	}
	return out, nil
}

func TestLikeService(t *testing.T) {
	ctx := context.Background()
	posts := testutil.NewPostStoreStub()
	postID := testutil.PostID(1)
	require.NoError(t, posts.Save(ctx, &models.Post{ID: postID, AuthorID: "alice", Content: "x"}))
	svc := NewLikeService(newLikeRepoStub(), posts)

	status, err := svc.Like(ctx, postID, "bob")
	require.NoError(t, err)
	assert.Equal(t, &models.LikeStatus{PostID: postID, Liked: true, Count: 1}, status)

	status, err = svc.Like(ctx, postID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Count)

	status, err = svc.Status(ctx, postID, "carol")
	require.NoError(t, err)
	assert.False(t, status.Liked)
	assert.Equal(t, int64(1), status.Count)

	status, err = svc.Unlike(ctx, postID, "bob")
	require.NoError(t, err)
	assert.Equal(t, &models.LikeStatus{PostID: postID, Liked: false, Count: 0}, status)
}

func TestLikeServiceErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewLikeService(newLikeRepoStub(), testutil.NewPostStoreStub())

	_, err := svc.Like(ctx, "nope", "bob")
	assertValidationError(t, err)

	_, err = svc.Like(ctx, testutil.PostID(1), "")
	assertValidationError(t, err)

	_, err = svc.Like(ctx, testutil.PostID(9), "bob")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
