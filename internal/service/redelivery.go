package service

import (
	"context"
	"log/slog"

	"feedline/internal/models"
	"feedline/internal/observability"
	"feedline/internal/repository"
)

// Fanouter runs follower fanout for one post.
type Fanouter interface {
	FanoutPost(ctx context.Context, post *models.Post) (*FanoutReport, error)
}

// RedeliveryStats summarizes one redelivery pass.
type RedeliveryStats struct {
	Resolved  int `json:"resolved"`
	Retried   int `json:"retried"`
	Abandoned int `json:"abandoned"`
	Dropped   int `json:"dropped"`
}

// RedeliveryService re-runs fanout for posts in the failure ledger.
type RedeliveryService struct {
	ledger      repository.FanoutFailureRepository
	posts       PostReader
	fanout      Fanouter
	maxAttempts int
	batchSize   int
}

func NewRedeliveryService(
	ledger repository.FanoutFailureRepository,
	posts PostReader,
	fanout Fanouter,
	maxAttempts, batchSize int,
) *RedeliveryService {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	if batchSize < 1 {
		batchSize = 50
	}
	return &RedeliveryService{
		ledger:      ledger,
		posts:       posts,
		fanout:      fanout,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
	}
}

// RedeliverPending processes up to one batch of ledger rows. A row is
// resolved when fanout completes or the post is gone; otherwise its
// attempt count is bumped and it stops being retried at maxAttempts.
func (s *RedeliveryService) RedeliverPending(ctx context.Context) (*RedeliveryStats, error) {
	rows, err := s.ledger.ListPending(ctx, s.maxAttempts, s.batchSize)
	if err != nil {
		observability.RedeliveryRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	stats := &RedeliveryStats{}
	for _, row := range rows {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		post, err := s.posts.GetByID(ctx, row.PostID)
		if models.IsCode(err, models.CodeNotFound) {
			if err := s.ledger.Resolve(ctx, row.PostID); err != nil {
				return stats, err
			}
			stats.Dropped++
			observability.RedeliveryRuns.WithLabelValues("dropped").Inc()
			continue
		}
		if err != nil {
			s.retry(ctx, &models.Post{ID: row.PostID, AuthorID: row.AuthorID}, row, row.Failed, err, stats)
			continue
		}

		report, err := s.fanout.FanoutPost(ctx, post)
		if err != nil {
			failed := row.Failed
			if report != nil {
				failed = report.Failed
			}
			s.retry(ctx, post, row, failed, err, stats)
			continue
		}

		if err := s.ledger.Resolve(ctx, row.PostID); err != nil {
			return stats, err
		}
		stats.Resolved++
		observability.RedeliveryRuns.WithLabelValues("resolved").Inc()
	}
	return stats, nil
}

func (s *RedeliveryService) retry(ctx context.Context, post *models.Post, row models.FanoutFailure, failed int, cause error, stats *RedeliveryStats) {
	if err := s.ledger.Record(ctx, post, failed, cause); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "failed to update fanout ledger",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
	}

	if row.Attempts+1 >= s.maxAttempts {
		stats.Abandoned++
		observability.RedeliveryRuns.WithLabelValues("abandoned").Inc()
		observability.GlobalLogger.ErrorContext(ctx, "fanout abandoned after max attempts",
			slog.String("post_id", post.ID),
			slog.Int("attempts", row.Attempts+1),
			slog.String("error", cause.Error()),
		)
		return
	}
	stats.Retried++
	observability.RedeliveryRuns.WithLabelValues("retry").Inc()
}
