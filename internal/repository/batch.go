package repository

import (
	"context"
	"fmt"
	"strings"

	"feedline/internal/models"

	"golang.org/x/sync/errgroup"
)

// DefaultTimelineBatchSize is the largest number of entries written in one
// storage round trip.
const DefaultTimelineBatchSize = 25

// ChunkError describes one failed chunk of a batch write.
type ChunkError struct {
	Index int
	Size  int
	Err   error
}

// BatchWriteError reports a batch write in which some chunks failed. Chunks
// not listed were written; nothing is rolled back.
type BatchWriteError struct {
	Total   int
	Written int
	Chunks  []ChunkError
}

func (e *BatchWriteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "timeline batch write: %d of %d entries failed in %d chunk(s)", e.Failed(), e.Total, len(e.Chunks))
	if len(e.Chunks) > 0 {
		fmt.Fprintf(&b, ": %v", e.Chunks[0].Err)
	}
	return b.String()
}

// Unwrap exposes each chunk's cause to errors.Is and errors.As.
func (e *BatchWriteError) Unwrap() []error {
	errs := make([]error, 0, len(e.Chunks))
	for _, c := range e.Chunks {
		errs = append(errs, c.Err)
	}
	return errs
}

// Failed is the number of entries in failed chunks.
func (e *BatchWriteError) Failed() int {
	return e.Total - e.Written
}

// chunkEntries splits entries into consecutive slices of at most size.
func chunkEntries(entries []models.TimelineEntry, size int) [][]models.TimelineEntry {
	chunks := make([][]models.TimelineEntry, 0, (len(entries)+size-1)/size)
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		chunks = append(chunks, entries[start:end])
	}
	return chunks
}

// writeChunks applies write to each chunk with at most parallelism chunks in
// flight. A failing chunk never cancels its siblings.
func writeChunks(
	ctx context.Context,
	entries []models.TimelineEntry,
	size, parallelism int,
	write func(context.Context, []models.TimelineEntry) error,
) error {
	if len(entries) == 0 {
		return nil
	}
	if size <= 0 || size > DefaultTimelineBatchSize {
		size = DefaultTimelineBatchSize
	}

	chunks := chunkEntries(entries, size)
	errs := make([]error, len(chunks))

	var g errgroup.Group
	g.SetLimit(max(parallelism, 1))
	for i, chunk := range chunks {
		g.Go(func() error {
			errs[i] = write(ctx, chunk)
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchWriteError{Total: len(entries)}
	for i, err := range errs {
		if err != nil {
			result.Chunks = append(result.Chunks, ChunkError{Index: i, Size: len(chunks[i]), Err: err})
			continue
		}
		result.Written += len(chunks[i])
	}
	if len(result.Chunks) == 0 {
		return nil
	}
	return result
}

// pageFrom trims a look-ahead result of up to limit+1 entries to one page
// and derives the next cursor.
func pageFrom(entries []models.TimelineEntry, limit int) *models.TimelinePage {
	page := &models.TimelinePage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		next := page.Entries[limit-1].PostID
		page.NextCursor = &next
	}
	if page.Entries == nil {
		page.Entries = []models.TimelineEntry{}
	}
	return page
}
