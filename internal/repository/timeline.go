package repository

import (
	"context"
	"fmt"

	"feedline/internal/models"
	"feedline/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TimelineRepository is the per-owner timeline index. Entries are unique
// per (owner, post) and read newest first by post ID.
type TimelineRepository interface {
	// AppendOne writes a single entry. Rewriting an existing entry is a no-op.
	AppendOne(ctx context.Context, entry models.TimelineEntry) error
	// AppendBatch writes entries in independent chunks. A partial failure
	// is returned as *BatchWriteError; written chunks stay written.
	AppendBatch(ctx context.Context, entries []models.TimelineEntry) error
	// QueryPage returns entries strictly older than cursor ("" for the
	// newest), at most limit of them after clamping.
	QueryPage(ctx context.Context, ownerUserID, cursor string, limit int) (*models.TimelinePage, error)
}

// TimelineOptions tunes batch writes.
type TimelineOptions struct {
	BatchSize   int
	Parallelism int
}

func (o TimelineOptions) withDefaults() TimelineOptions {
	if o.BatchSize <= 0 || o.BatchSize > DefaultTimelineBatchSize {
		o.BatchSize = DefaultTimelineBatchSize
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 1
	}
	return o
}

type timelineRepository struct {
	db      *gorm.DB
	opts    TimelineOptions
	metrics *observability.DatabaseMetrics
	log     *observability.RepoLogger
	trace   *observability.TraceLayer
}

// NewTimelineRepository creates a SQL-backed timeline index.
func NewTimelineRepository(db *gorm.DB, opts TimelineOptions) TimelineRepository {
	return &timelineRepository{
		db:      db,
		opts:    opts.withDefaults(),
		metrics: observability.NewDatabaseMetrics("timeline_entries"),
		log:     observability.NewRepoLogger("timeline_entries"),
		trace:   observability.GetTraceLayer(),
	}
}

func (r *timelineRepository) AppendOne(ctx context.Context, entry models.TimelineEntry) error {
	defer r.metrics.TrackQuery("append_one")()

	if err := r.insert(ctx, []models.TimelineEntry{entry}); err != nil {
		r.log.LogError(ctx, err, "append_one")
		return fmt.Errorf("append timeline entry %s/%s: %w", entry.OwnerUserID, entry.PostID, err)
	}
	return nil
}

func (r *timelineRepository) AppendBatch(ctx context.Context, entries []models.TimelineEntry) error {
	defer r.metrics.TrackQuery("append_batch")()
	ctx, span := r.trace.TraceRepositoryMethod(ctx, r.db.Dialector.Name(), "AppendBatch", "timeline_entries")
	defer span.End()

	err := writeChunks(ctx, entries, r.opts.BatchSize, r.opts.Parallelism, r.insert)
	if err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "append_batch")
	}
	return err
}

func (r *timelineRepository) insert(ctx context.Context, entries []models.TimelineEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entries).Error
}

func (r *timelineRepository) QueryPage(ctx context.Context, ownerUserID, cursor string, limit int) (*models.TimelinePage, error) {
	defer r.metrics.TrackQuery("query_page")()
	ctx, span := r.trace.TraceRepositoryMethod(ctx, r.db.Dialector.Name(), "QueryPage", "timeline_entries")
	defer span.End()

	limit = models.NormalizeLimit(limit)

	q := r.db.WithContext(ctx).Where("owner_user_id = ?", ownerUserID)
	if cursor != "" {
		q = q.Where("post_id < ?", cursor)
	}

	var rows []models.TimelineEntry
	if err := q.Order("post_id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "query_page")
		return nil, fmt.Errorf("query timeline of %s: %w", ownerUserID, err)
	}
	return pageFrom(rows, limit), nil
}
