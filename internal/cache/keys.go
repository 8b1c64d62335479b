package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	postKeyPrefix         = "post:"
	timelineKeyPrefix     = "timeline:"
	timelineMetaKeyPrefix = "timeline_meta:"
)

// PostTTL is the default lifetime of a cached post.
const PostTTL = 5 * time.Minute

// PostKey is the cache key of a single post.
func PostKey(postID string) string {
	return postKeyPrefix + postID
}

// TimelineKey is the sorted-set key holding one owner's timeline.
func TimelineKey(ownerUserID string) string {
	return timelineKeyPrefix + ownerUserID
}

// TimelineMetaKey is the hash holding author and creation time per post
// of one owner's timeline.
func TimelineMetaKey(ownerUserID string) string {
	return timelineMetaKeyPrefix + ownerUserID
}

// MarkDeleted replaces keys with a tombstone that lives for ttl.
func MarkDeleted(ctx context.Context, rdb redis.Cmdable, ttl time.Duration, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	_, _ = rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Set(ctx, k, TombstoneValue, ttl)
		}
		return nil
	})
}
