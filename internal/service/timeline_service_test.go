package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"feedline/internal/models"
	"feedline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportCall struct {
	post   *models.Post
	report *FanoutReport
	err    error
}

type reporterStub struct {
	mu    sync.Mutex
	calls []reportCall
}

func (r *reporterStub) ReportFanoutFailure(_ context.Context, post *models.Post, report *FanoutReport, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, reportCall{post: post, report: report, err: err})
}

type executorStub struct {
	submitFn func(context.Context, *models.Post) error
}

func (e *executorStub) Submit(ctx context.Context, post *models.Post) error {
	return e.submitFn(ctx, post)
}

type likeCounterStub struct {
	countFn func(context.Context, []string) (map[string]int64, error)
}

func (l *likeCounterStub) CountByPosts(ctx context.Context, ids []string) (map[string]int64, error) {
	return l.countFn(ctx, ids)
}

type timelineFixture struct {
	timeline *testutil.TimelineStub
	graph    *testutil.FollowGraphStub
	posts    *testutil.PostStoreStub
	reporter *reporterStub
	svc      *TimelineService
}

func newTimelineFixture(opts ...TimelineOption) *timelineFixture {
	f := &timelineFixture{
		timeline: testutil.NewTimelineStub(),
		graph:    testutil.NewFollowGraphStub(),
		posts:    testutil.NewPostStoreStub(),
		reporter: &reporterStub{},
	}
	opts = append([]TimelineOption{WithReporter(f.reporter)}, opts...)
	f.svc = NewTimelineService(f.timeline, f.graph, f.posts, opts...)
	return f
}

func (f *timelineFixture) savePost(t *testing.T, n int, author string) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:        testutil.PostID(n),
		AuthorID:  author,
		Content:   "post",
		CreatedAt: time.Unix(int64(n), 0).UTC(),
	}
	require.NoError(t, f.posts.Save(context.Background(), post))
	return post
}

func TestAddToOwnTimeline(t *testing.T) {
	f := newTimelineFixture()
	post := f.savePost(t, 1, "alice")

	require.NoError(t, f.svc.AddToOwnTimeline(context.Background(), post))
	assert.Equal(t, []string{post.ID}, f.timeline.PostIDs("alice"))
}

func TestAddToOwnTimeline_Failure(t *testing.T) {
	f := newTimelineFixture()
	f.timeline.FailOwners["alice"] = true

	err := f.svc.AddToOwnTimeline(context.Background(), f.savePost(t, 1, "alice"))
	require.Error(t, err)
}

func TestFanoutPost_WritesEveryFollower(t *testing.T) {
	f := newTimelineFixture()
	f.graph.Add("bob", "alice")
	f.graph.Add("carol", "alice")
	f.graph.Add("alice", "alice")
	post := f.savePost(t, 1, "alice")

	report, err := f.svc.FanoutPost(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, &FanoutReport{PostID: post.ID, Followers: 2, Delivered: 2}, report)
	assert.Equal(t, []string{post.ID}, f.timeline.PostIDs("bob"))
	assert.Equal(t, []string{post.ID}, f.timeline.PostIDs("carol"))
	assert.Empty(t, f.timeline.PostIDs("alice"))
}

func TestFanoutPost_NoFollowers(t *testing.T) {
	f := newTimelineFixture()

	report, err := f.svc.FanoutPost(context.Background(), f.savePost(t, 1, "alice"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Followers)
	assert.Equal(t, 0, f.timeline.BatchCalls)
}

func TestFanoutPost_PartialFailureConverges(t *testing.T) {
	f := newTimelineFixture()
	f.graph.Add("bob", "alice")
	f.graph.Add("carol", "alice")
	f.timeline.FailOwners["carol"] = true
	post := f.savePost(t, 1, "alice")

	report, err := f.svc.FanoutPost(context.Background(), post)
	require.Error(t, err)
	assert.Equal(t, StageWrite, StageOf(err))
	assert.Equal(t, 2, report.Followers)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{post.ID}, f.timeline.PostIDs("bob"))
	assert.Empty(t, f.timeline.PostIDs("carol"))

	delete(f.timeline.FailOwners, "carol")
	report, err = f.svc.FanoutPost(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, []string{post.ID}, f.timeline.PostIDs("bob"))
	assert.Equal(t, []string{post.ID}, f.timeline.PostIDs("carol"))
}

func TestFanoutPost_FollowerLookupFails(t *testing.T) {
	f := newTimelineFixture()
	f.graph.FollowersErr = errors.New("graph down")

	_, err := f.svc.FanoutPost(context.Background(), f.savePost(t, 1, "alice"))
	require.Error(t, err)
	assert.Equal(t, StageFollowers, StageOf(err))
	assert.ErrorContains(t, err, "graph down")
}

func TestCreateFanout_InlineReportsAndSucceeds(t *testing.T) {
	f := newTimelineFixture()
	f.graph.Add("bob", "alice")
	f.timeline.FailOwners["bob"] = true
	post := f.savePost(t, 1, "alice")

	require.NoError(t, f.svc.CreateFanout(context.Background(), post))
	assert.Equal(t, []string{post.ID}, f.timeline.PostIDs("alice"))
	require.Len(t, f.reporter.calls, 1)
	assert.Equal(t, post.ID, f.reporter.calls[0].post.ID)
	assert.Equal(t, 1, f.reporter.calls[0].report.Failed)
}

func TestCreateFanout_OwnTimelineFailureIsFatal(t *testing.T) {
	submitted := false
	exec := &executorStub{submitFn: func(context.Context, *models.Post) error {
		submitted = true
		return nil
	}}
	f := newTimelineFixture(WithExecutor(exec, "test"))
	f.timeline.FailOwners["alice"] = true

	err := f.svc.CreateFanout(context.Background(), f.savePost(t, 1, "alice"))
	require.Error(t, err)
	assert.False(t, submitted)
}

func TestCreateFanout_EnqueueFailureIsReported(t *testing.T) {
	exec := &executorStub{submitFn: func(context.Context, *models.Post) error {
		return errors.New("broker unavailable")
	}}
	f := newTimelineFixture(WithExecutor(exec, "test"))

	require.NoError(t, f.svc.CreateFanout(context.Background(), f.savePost(t, 1, "alice")))
	require.Len(t, f.reporter.calls, 1)
	assert.Equal(t, StageEnqueue, StageOf(f.reporter.calls[0].err))
}

func TestGetTimeline_HydratesInTimelineOrder(t *testing.T) {
	f := newTimelineFixture()
	f.graph.Add("bob", "alice")
	for n := 1; n <= 3; n++ {
		require.NoError(t, f.svc.CreateFanout(context.Background(), f.savePost(t, n, "alice")))
	}

	timeline, err := f.svc.GetTimeline(context.Background(), "bob", "", 10)
	require.NoError(t, err)
	require.Len(t, timeline.Posts, 3)
	assert.Equal(t, testutil.PostID(3), timeline.Posts[0].ID)
	assert.Equal(t, testutil.PostID(2), timeline.Posts[1].ID)
	assert.Equal(t, testutil.PostID(1), timeline.Posts[2].ID)
	assert.Nil(t, timeline.NextCursor)
}

func TestGetTimeline_Pagination(t *testing.T) {
	f := newTimelineFixture()
	for n := 1; n <= 3; n++ {
		require.NoError(t, f.svc.AddToOwnTimeline(context.Background(), f.savePost(t, n, "alice")))
	}

	first, err := f.svc.GetTimeline(context.Background(), "alice", "", 2)
	require.NoError(t, err)
	require.Len(t, first.Posts, 2)
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, testutil.PostID(2), *first.NextCursor)

	second, err := f.svc.GetTimeline(context.Background(), "alice", *first.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Posts, 1)
	assert.Equal(t, testutil.PostID(1), second.Posts[0].ID)
	assert.Nil(t, second.NextCursor)
}

func TestGetTimeline_DropsDeletedPostsAndKeepsCursor(t *testing.T) {
	f := newTimelineFixture()
	for n := 1; n <= 3; n++ {
		require.NoError(t, f.svc.AddToOwnTimeline(context.Background(), f.savePost(t, n, "alice")))
	}
	require.NoError(t, f.posts.Delete(context.Background(), testutil.PostID(3)))

	timeline, err := f.svc.GetTimeline(context.Background(), "alice", "", 2)
	require.NoError(t, err)
	require.Len(t, timeline.Posts, 1)
	assert.Equal(t, testutil.PostID(2), timeline.Posts[0].ID)
	require.NotNil(t, timeline.NextCursor)
	assert.Equal(t, testutil.PostID(2), *timeline.NextCursor)
}

func TestGetTimeline_InvalidCursorStartsAtNewest(t *testing.T) {
	f := newTimelineFixture()
	for n := 1; n <= 2; n++ {
		require.NoError(t, f.svc.AddToOwnTimeline(context.Background(), f.savePost(t, n, "alice")))
	}

	timeline, err := f.svc.GetTimeline(context.Background(), "alice", "not-a-cursor", 10)
	require.NoError(t, err)
	require.Len(t, timeline.Posts, 2)
	assert.Equal(t, testutil.PostID(2), timeline.Posts[0].ID)
}

func TestGetTimeline_ClampsLimit(t *testing.T) {
	f := newTimelineFixture()
	for n := 1; n <= 25; n++ {
		require.NoError(t, f.svc.AddToOwnTimeline(context.Background(), f.savePost(t, n, "alice")))
	}

	for _, limit := range []int{0, -3, 101} {
		timeline, err := f.svc.GetTimeline(context.Background(), "alice", "", limit)
		require.NoError(t, err)
		assert.Len(t, timeline.Posts, models.DefaultPageLimit, "limit %d", limit)
		assert.NotNil(t, timeline.NextCursor)
	}
}

func TestGetTimeline_EmptySkipsHydration(t *testing.T) {
	f := newTimelineFixture()
	f.posts.GetErr = errors.New("should not be called")

	timeline, err := f.svc.GetTimeline(context.Background(), "nobody", "", 10)
	require.NoError(t, err)
	assert.Empty(t, timeline.Posts)
	assert.NotNil(t, timeline.Posts)
	assert.Nil(t, timeline.NextCursor)
}

func TestGetTimeline_StoreFailures(t *testing.T) {
	f := newTimelineFixture()
	require.NoError(t, f.svc.AddToOwnTimeline(context.Background(), f.savePost(t, 1, "alice")))

	f.posts.GetErr = errors.New("post store down")
	_, err := f.svc.GetTimeline(context.Background(), "alice", "", 10)
	require.Error(t, err)

	f.posts.GetErr = nil
	f.timeline.QueryErr = errors.New("index down")
	_, err = f.svc.GetTimeline(context.Background(), "alice", "", 10)
	require.Error(t, err)
}

func TestGetTimeline_RequiresUser(t *testing.T) {
	f := newTimelineFixture()
	_, err := f.svc.GetTimeline(context.Background(), "", "", 10)
	assertValidationError(t, err)
}

func TestReadTimeline_EnrichesLikes(t *testing.T) {
	likes := &likeCounterStub{countFn: func(_ context.Context, ids []string) (map[string]int64, error) {
		return map[string]int64{ids[0]: 4}, nil
	}}
	f := newTimelineFixture(WithLikeCounter(likes))
	for n := 1; n <= 2; n++ {
		require.NoError(t, f.svc.AddToOwnTimeline(context.Background(), f.savePost(t, n, "alice")))
	}

	timeline, err := f.svc.ReadTimeline(context.Background(), "alice", "", 10)
	require.NoError(t, err)
	require.Len(t, timeline.Posts, 2)
	assert.Equal(t, int64(4), timeline.Posts[0].LikeCount)
	assert.Equal(t, int64(0), timeline.Posts[1].LikeCount)
}

func TestReadTimeline_LikeFailureDoesNotFailRead(t *testing.T) {
	likes := &likeCounterStub{countFn: func(context.Context, []string) (map[string]int64, error) {
		return nil, errors.New("likes unavailable")
	}}
	f := newTimelineFixture(WithLikeCounter(likes))
	require.NoError(t, f.svc.AddToOwnTimeline(context.Background(), f.savePost(t, 1, "alice")))

	timeline, err := f.svc.ReadTimeline(context.Background(), "alice", "", 10)
	require.NoError(t, err)
	require.Len(t, timeline.Posts, 1)
	assert.Equal(t, int64(0), timeline.Posts[0].LikeCount)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeValidation), "expected validation error, got %v", err)
}
