package service

import (
	"context"
	"errors"
	"testing"

	"feedline/internal/models"
	"feedline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerReporterRecords(t *testing.T) {
	ledger := testutil.NewFanoutFailureStub()
	reporter := NewLedgerReporter(ledger)
	post := &models.Post{ID: testutil.PostID(1), AuthorID: "alice"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reporter.ReportFanoutFailure(ctx, post, &FanoutReport{PostID: post.ID, Followers: 3, Delivered: 1, Failed: 2},
		&FanoutError{Stage: StageWrite, Err: errors.New("boom")})

	row, ok := ledger.Get(post.ID)
	require.True(t, ok)
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, 2, row.Failed)
	assert.Contains(t, row.LastError, "boom")
}

func TestRedeliverPending(t *testing.T) {
	ctx := context.Background()
	f := newTimelineFixture()
	ledger := testutil.NewFanoutFailureStub()
	f.graph.Add("bob", "alice")
	post := f.savePost(t, 1, "alice")

	f.timeline.FailOwners["bob"] = true
	report, err := f.svc.FanoutPost(ctx, post)
	require.Error(t, err)
	require.NoError(t, ledger.Record(ctx, post, report.Failed, err))

	svc := NewRedeliveryService(ledger, f.posts, f.svc, 5, 10)

	stats, err := svc.RedeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &RedeliveryStats{Retried: 1}, stats)
	row, ok := ledger.Get(post.ID)
	require.True(t, ok)
	assert.Equal(t, 2, row.Attempts)

	delete(f.timeline.FailOwners, "bob")
	stats, err = svc.RedeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &RedeliveryStats{Resolved: 1}, stats)
	_, ok = ledger.Get(post.ID)
	assert.False(t, ok)
	assert.Equal(t, []string{post.ID}, f.timeline.PostIDs("bob"))
}

func TestRedeliverPendingGivesUp(t *testing.T) {
	ctx := context.Background()
	f := newTimelineFixture()
	ledger := testutil.NewFanoutFailureStub()
	f.graph.Add("bob", "alice")
	f.timeline.FailOwners["bob"] = true
	post := f.savePost(t, 1, "alice")
	require.NoError(t, ledger.Record(ctx, post, 1, errors.New("first")))

	svc := NewRedeliveryService(ledger, f.posts, f.svc, 2, 10)

	stats, err := svc.RedeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Abandoned)

	stats, err = svc.RedeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &RedeliveryStats{}, stats)
}

func TestRedeliverPendingDropsDeletedPosts(t *testing.T) {
	ctx := context.Background()
	f := newTimelineFixture()
	ledger := testutil.NewFanoutFailureStub()
	post := &models.Post{ID: testutil.PostID(7), AuthorID: "alice"}
	require.NoError(t, ledger.Record(ctx, post, 1, errors.New("boom")))

	stats, err := NewRedeliveryService(ledger, f.posts, f.svc, 5, 10).RedeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &RedeliveryStats{Dropped: 1}, stats)
	_, ok := ledger.Get(post.ID)
	assert.False(t, ok)
}
