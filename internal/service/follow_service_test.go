package service

import (
	"context"
	"testing"

	"feedline/internal/models"
	"feedline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService(t *testing.T) {
	ctx := context.Background()
	svc := NewFollowService(testutil.NewFollowGraphStub())

	follow, err := svc.Follow(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bob", follow.FollowerID)
	assert.Equal(t, "alice", follow.FollowingID)

	_, err = svc.Follow(ctx, "bob", "alice")
	assert.True(t, models.IsCode(err, models.CodeConflict))

	_, err = svc.Follow(ctx, "carol", "alice")
	require.NoError(t, err)

	following, err := svc.IsFollowing(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, following)

	followers, err := svc.GetFollowers(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, followers)

	counts, err := svc.GetCounts(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, &models.FollowCounts{UserID: "alice", Followers: 2, Following: 0}, counts)

	require.NoError(t, svc.Unfollow(ctx, "bob", "alice"))
	err = svc.Unfollow(ctx, "bob", "alice")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	out, err := svc.GetFollowing(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, out)
}

func TestFollowServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewFollowService(testutil.NewFollowGraphStub())

	_, err := svc.Follow(ctx, "alice", "alice")
	assertValidationError(t, err)

	_, err = svc.Follow(ctx, "", "alice")
	assertValidationError(t, err)

	_, err = svc.IsFollowing(ctx, "bob", "")
	assertValidationError(t, err)

	_, err = svc.GetCounts(ctx, "")
	assertValidationError(t, err)
}
