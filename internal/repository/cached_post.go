package repository

import (
	"context"
	"encoding/json"
	"time"

	"feedline/internal/cache"
	"feedline/internal/models"
	"feedline/internal/observability"

	"github.com/redis/go-redis/v9"
)

// cachedPostRepository is a cache-aside decorator over a PostRepository.
// Posts are immutable, so cached copies only go stale on delete. Delete
// leaves a tombstone and back-fills use SET NX, so a read racing a delete
// cannot put the post back.
type cachedPostRepository struct {
	next PostRepository
	rdb  redis.UniversalClient
	ttl  time.Duration
	log  *observability.RepoLogger
}

// NewCachedPostRepository wraps next with a Redis read-through cache.
func NewCachedPostRepository(next PostRepository, rdb redis.UniversalClient, ttl time.Duration) PostRepository {
	if ttl <= 0 {
		ttl = cache.PostTTL
	}
	return &cachedPostRepository{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  observability.NewRepoLogger("redis:posts"),
	}
}

func (r *cachedPostRepository) Save(ctx context.Context, post *models.Post) error {
	if err := r.next.Save(ctx, post); err != nil {
		return err
	}
	if err := cache.SetJSON(ctx, r.rdb, cache.PostKey(post.ID), post, r.ttl); err != nil {
		r.log.LogError(ctx, err, "save")
	}
	return nil
}

func (r *cachedPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := cache.CacheAside(ctx, r.rdb, cache.PostKey(id), &post, r.ttl, func() error {
		found, err := r.next.GetByID(ctx, id)
		if err != nil {
			return err
		}
		post = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *cachedPostRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.PostKey(id)
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		r.log.LogError(ctx, err, "mget")
		return r.next.GetByIDs(ctx, ids)
	}

	posts := make([]*models.Post, 0, len(ids))
	var missing []string
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		if raw == cache.TombstoneValue {
			continue
		}
		var p models.Post
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		posts = append(posts, &p)
	}
	observability.PostCacheRequests.WithLabelValues("hit").Add(float64(len(posts)))
	observability.PostCacheRequests.WithLabelValues("miss").Add(float64(len(missing)))

	if len(missing) == 0 {
		return posts, nil
	}

	fetched, err := r.next.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}

	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range fetched {
			b, err := json.Marshal(p)
			if err != nil {
				return err
			}
			pipe.SetNX(ctx, cache.PostKey(p.ID), b, r.ttl)
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "backfill")
	}

	return append(posts, fetched...), nil
}

func (r *cachedPostRepository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	cache.MarkDeleted(ctx, r.rdb, r.ttl, cache.PostKey(id))
	return nil
}
