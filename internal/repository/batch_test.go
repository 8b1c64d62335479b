package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"feedline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteChunks_SplitsAtBatchSize(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	write := func(_ context.Context, chunk []models.TimelineEntry) error {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(chunk))
		return nil
	}

	err := writeChunks(context.Background(), entries("u", 1, 60), DefaultTimelineBatchSize, 1, write)
	require.NoError(t, err)
	assert.Equal(t, []int{25, 25, 10}, sizes)
}

func TestWriteChunks_OversizedBatchIsCapped(t *testing.T) {
	var calls atomic.Int32
	write := func(_ context.Context, chunk []models.TimelineEntry) error {
		calls.Add(1)
		assert.LessOrEqual(t, len(chunk), DefaultTimelineBatchSize)
		return nil
	}

	require.NoError(t, writeChunks(context.Background(), entries("u", 1, 50), 500, 4, write))
	assert.Equal(t, int32(2), calls.Load())
}

func TestWriteChunks_EmptyIsNoop(t *testing.T) {
	err := writeChunks(context.Background(), nil, 25, 1, func(context.Context, []models.TimelineEntry) error {
		t.Fatal("write must not be called")
		return nil
	})
	assert.NoError(t, err)
}

func TestWriteChunks_FailedChunkDoesNotBlockOthers(t *testing.T) {
	boom := errors.New("throttled")
	var written atomic.Int32
	write := func(_ context.Context, chunk []models.TimelineEntry) error {
		if chunk[0].PostID == postID(26) {
			return boom
		}
		written.Add(int32(len(chunk)))
		return nil
	}

	err := writeChunks(context.Background(), entries("u", 1, 60), 25, 3, write)
	require.Error(t, err)

	var batchErr *BatchWriteError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 60, batchErr.Total)
	assert.Equal(t, 35, batchErr.Written)
	assert.Equal(t, 25, batchErr.Failed())
	require.Len(t, batchErr.Chunks, 1)
	assert.Equal(t, 1, batchErr.Chunks[0].Index)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(35), written.Load())
}

func TestWriteChunks_RespectsParallelism(t *testing.T) {
	var inFlight, peak, starts atomic.Int32
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	write := func(_ context.Context, _ []models.TimelineEntry) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if starts.Add(1) <= 2 {
			started.Done()
		}
		<-release
		inFlight.Add(-1)
		return nil
	}

	done := make(chan error)
	go func() { done <- writeChunks(context.Background(), entries("u", 1, 100), 25, 2, write) }()

	started.Wait()
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(2), peak.Load())
}

func TestPageFrom(t *testing.T) {
	page := pageFrom(entries("u", 1, 3), 3)
	assert.Len(t, page.Entries, 3)
	assert.Nil(t, page.NextCursor)

	page = pageFrom(entries("u", 1, 4), 3)
	assert.Len(t, page.Entries, 3)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, postID(3), *page.NextCursor)

	page = pageFrom(nil, 20)
	assert.NotNil(t, page.Entries)
	assert.Empty(t, page.Entries)
}
