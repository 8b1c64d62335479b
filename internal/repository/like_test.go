package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository(t *testing.T) {
	repo := NewLikeRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Like(ctx, postID(1), "bob"))
	require.NoError(t, repo.Like(ctx, postID(1), "bob"), "like is idempotent")
	require.NoError(t, repo.Like(ctx, postID(1), "carol"))
	require.NoError(t, repo.Like(ctx, postID(2), "bob"))

	liked, err := repo.HasLiked(ctx, postID(1), "bob")
	require.NoError(t, err)
	assert.True(t, liked)

	n, err := repo.CountByPost(ctx, postID(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := repo.CountByPosts(ctx, []string{postID(1), postID(2), postID(3)})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{postID(1): 2, postID(2): 1}, counts)

	require.NoError(t, repo.Unlike(ctx, postID(1), "bob"))
	require.NoError(t, repo.Unlike(ctx, postID(1), "bob"), "unlike is idempotent")

	liked, err = repo.HasLiked(ctx, postID(1), "bob")
	require.NoError(t, err)
	assert.False(t, liked)

	empty, err := repo.CountByPosts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
