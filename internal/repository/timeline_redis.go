package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"feedline/internal/cache"
	"feedline/internal/models"
	"feedline/internal/observability"

	"github.com/redis/go-redis/v9"
)

// redisTimelineRepository keeps each owner's timeline in a sorted set whose
// members are post IDs, all scored 0, so the set orders lexicographically
// by post ID. The member alone is the dedup key. Author and creation time
// live in a per-owner hash as "authorID|createdAtUnixNano", written with
// HSETNX so the first write of a post wins.
type redisTimelineRepository struct {
	rdb   redis.UniversalClient
	opts  TimelineOptions
	trace *observability.TraceLayer
	log   *observability.RepoLogger
}

// NewRedisTimelineRepository creates a Redis sorted-set timeline index.
func NewRedisTimelineRepository(rdb redis.UniversalClient, opts TimelineOptions) TimelineRepository {
	return &redisTimelineRepository{
		rdb:   rdb,
		opts:  opts.withDefaults(),
		trace: observability.GetTraceLayer(),
		log:   observability.NewRepoLogger("redis:timeline"),
	}
}

func encodeMeta(e models.TimelineEntry) string {
	return e.AuthorID + "|" + strconv.FormatInt(e.CreatedAt.UnixNano(), 10)
}

// decodeMeta fills author and creation time of e. Missing metadata leaves
// them zero; readers only need the post ID.
func decodeMeta(e *models.TimelineEntry, meta string) error {
	if meta == "" {
		return nil
	}
	sep := strings.LastIndexByte(meta, '|')
	if sep < 0 {
		return fmt.Errorf("malformed timeline metadata %q", meta)
	}
	nanos, err := strconv.ParseInt(meta[sep+1:], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed timeline metadata %q: %w", meta, err)
	}
	e.AuthorID = meta[:sep]
	e.CreatedAt = time.Unix(0, nanos).UTC()
	return nil
}

func appendEntry(ctx context.Context, pipe redis.Pipeliner, e models.TimelineEntry) {
	pipe.HSetNX(ctx, cache.TimelineMetaKey(e.OwnerUserID), e.PostID, encodeMeta(e))
	pipe.ZAddNX(ctx, cache.TimelineKey(e.OwnerUserID), redis.Z{Member: e.PostID})
}

func (r *redisTimelineRepository) AppendOne(ctx context.Context, entry models.TimelineEntry) error {
	ctx, span := r.trace.TraceRedisOperation(ctx, "zadd")
	defer span.End()

	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		appendEntry(ctx, pipe, entry)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "append_one")
		return fmt.Errorf("append timeline entry %s/%s: %w", entry.OwnerUserID, entry.PostID, err)
	}
	return nil
}

func (r *redisTimelineRepository) AppendBatch(ctx context.Context, entries []models.TimelineEntry) error {
	ctx, span := r.trace.TraceRedisOperation(ctx, "zadd_batch")
	defer span.End()

	err := writeChunks(ctx, entries, r.opts.BatchSize, r.opts.Parallelism, r.writeChunk)
	if err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "append_batch")
	}
	return err
}

func (r *redisTimelineRepository) writeChunk(ctx context.Context, chunk []models.TimelineEntry) error {
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range chunk {
			appendEntry(ctx, pipe, e)
		}
		return nil
	})
	return err
}

func (r *redisTimelineRepository) QueryPage(ctx context.Context, ownerUserID, cursor string, limit int) (*models.TimelinePage, error) {
	ctx, span := r.trace.TraceRedisOperation(ctx, "zrevrangebylex")
	defer span.End()

	limit = models.NormalizeLimit(limit)

	upper := "+"
	if cursor != "" {
		upper = "(" + cursor
	}

	members, err := r.rdb.ZRevRangeByLex(ctx, cache.TimelineKey(ownerUserID), &redis.ZRangeBy{
		Max:   upper,
		Min:   "-",
		Count: int64(limit + 1),
	}).Result()
	if err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "query_page")
		return nil, fmt.Errorf("query timeline of %s: %w", ownerUserID, err)
	}

	entries := make([]models.TimelineEntry, 0, len(members))
	if len(members) == 0 {
		return pageFrom(entries, limit), nil
	}

	metas, err := r.rdb.HMGet(ctx, cache.TimelineMetaKey(ownerUserID), members...).Result()
	if err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "query_page")
		return nil, fmt.Errorf("load timeline metadata of %s: %w", ownerUserID, err)
	}
	for i, id := range members {
		e := models.TimelineEntry{OwnerUserID: ownerUserID, PostID: id}
		meta, _ := metas[i].(string)
		if err := decodeMeta(&e, meta); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return pageFrom(entries, limit), nil
}
