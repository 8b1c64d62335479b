// Package service holds the business logic behind the API and workers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedline/internal/idgen"
	"feedline/internal/models"
	"feedline/internal/observability"
	"feedline/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FollowerLister enumerates the users following an author.
type FollowerLister interface {
	GetFollowers(ctx context.Context, userID string) ([]string, error)
}

// PostBatchReader multi-gets posts in no particular order, omitting
// posts that do not exist.
type PostBatchReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]*models.Post, error)
}

// LikeCounter supplies like counts for timeline enrichment.
type LikeCounter interface {
	CountByPosts(ctx context.Context, postIDs []string) (map[string]int64, error)
}

// FanoutExecutor runs or schedules the follower fanout of a post that is
// already on its author's timeline.
type FanoutExecutor interface {
	Submit(ctx context.Context, post *models.Post) error
}

// Fanout failure stages.
const (
	StageFollowers = "followers"
	StageWrite     = "write"
	StageEnqueue   = "enqueue"
)

// FanoutError is returned when a fanout run did not reach every follower.
type FanoutError struct {
	Stage string
	Err   error
}

func (e *FanoutError) Error() string {
	return fmt.Sprintf("fanout %s: %v", e.Stage, e.Err)
}

func (e *FanoutError) Unwrap() error {
	return e.Err
}

// FanoutReport summarizes one fanout run.
type FanoutReport struct {
	PostID    string
	Followers int
	Delivered int
	Failed    int
}

// TimelineService maintains and serves home timelines with fanout-on-write.
type TimelineService struct {
	timeline  repository.TimelineRepository
	followers FollowerLister
	posts     PostBatchReader
	likes     LikeCounter
	executor  FanoutExecutor
	reporter  DeliveryReporter
	mode      string
}

// TimelineOption configures a TimelineService.
type TimelineOption func(*TimelineService)

// WithLikeCounter enables like-count enrichment in ReadTimeline.
func WithLikeCounter(likes LikeCounter) TimelineOption {
	return func(s *TimelineService) { s.likes = likes }
}

// WithExecutor replaces the inline fanout executor; mode labels metrics.
func WithExecutor(executor FanoutExecutor, mode string) TimelineOption {
	return func(s *TimelineService) {
		s.executor = executor
		s.mode = mode
	}
}

// WithReporter sets where degraded fanouts are reported.
func WithReporter(reporter DeliveryReporter) TimelineOption {
	return func(s *TimelineService) { s.reporter = reporter }
}

// NewTimelineService creates a TimelineService. Without options fanout runs
// inline and failures are logged.
func NewTimelineService(
	timeline repository.TimelineRepository,
	followers FollowerLister,
	posts PostBatchReader,
	opts ...TimelineOption,
) *TimelineService {
	s := &TimelineService{
		timeline:  timeline,
		followers: followers,
		posts:     posts,
		reporter:  LogReporter{},
		mode:      "inline",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.executor == nil {
		s.executor = inlineExecutor{svc: s}
	}
	return s
}

// Reporter returns the configured delivery reporter.
func (s *TimelineService) Reporter() DeliveryReporter {
	return s.reporter
}

// AddToOwnTimeline places post on its author's timeline. A failure here
// means the post must not be reported as created.
func (s *TimelineService) AddToOwnTimeline(ctx context.Context, post *models.Post) error {
	span, ctx := observability.NewSpan(ctx, "TimelineService.AddToOwnTimeline",
		attribute.String("post.id", post.ID))
	defer span.End()

	if err := s.timeline.AppendOne(ctx, models.EntryFor(post.AuthorID, post)); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// FanoutPost writes post into every follower's timeline. It is safe to
// re-run: entries already written are left untouched. Errors are
// *FanoutError and come with a report of how far the run got.
func (s *TimelineService) FanoutPost(ctx context.Context, post *models.Post) (*FanoutReport, error) {
	span, ctx := observability.NewSpan(ctx, "TimelineService.FanoutPost",
		attribute.String("post.id", post.ID),
		attribute.String("author.id", post.AuthorID))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.FanoutDuration.WithLabelValues(s.mode).Observe(time.Since(start).Seconds())
	}()

	report := &FanoutReport{PostID: post.ID}

	followers, err := s.followers.GetFollowers(ctx, post.AuthorID)
	if err != nil {
		err = &FanoutError{Stage: StageFollowers, Err: err}
		span.SetError(err)
		return report, err
	}

	entries := make([]models.TimelineEntry, 0, len(followers))
	for _, follower := range followers {
		if follower == post.AuthorID {
			continue
		}
		entries = append(entries, models.EntryFor(follower, post))
	}
	report.Followers = len(entries)
	observability.FanoutFollowers.Observe(float64(len(entries)))
	span.AddAttributes(attribute.Int("fanout.followers", len(entries)))

	if len(entries) == 0 {
		return report, nil
	}

	err = s.timeline.AppendBatch(ctx, entries)
	report.Delivered = len(entries)
	if err != nil {
		var batchErr *repository.BatchWriteError
		if errors.As(err, &batchErr) {
			report.Delivered = batchErr.Written
		} else {
			report.Delivered = 0
		}
	}
	report.Failed = report.Followers - report.Delivered

	observability.FanoutEntriesTotal.WithLabelValues("delivered").Add(float64(report.Delivered))
	if err != nil {
		observability.FanoutEntriesTotal.WithLabelValues("failed").Add(float64(report.Failed))
		err = &FanoutError{Stage: StageWrite, Err: err}
		span.SetError(err)
		return report, err
	}
	return report, nil
}

// CreateFanout performs the write path for a freshly saved post: the
// author's own timeline first, then follower fanout via the executor.
// Only the own-timeline write can fail the call.
func (s *TimelineService) CreateFanout(ctx context.Context, post *models.Post) error {
	if err := s.AddToOwnTimeline(ctx, post); err != nil {
		return err
	}

	if err := s.executor.Submit(ctx, post); err != nil {
		s.reporter.ReportFanoutFailure(ctx, post, &FanoutReport{PostID: post.ID},
			&FanoutError{Stage: StageEnqueue, Err: err})
	}
	return nil
}

// GetTimeline reads one page of userID's timeline and hydrates it in
// timeline order. Posts that no longer exist are skipped; the cursor is
// passed through unchanged.
func (s *TimelineService) GetTimeline(ctx context.Context, userID, cursor string, limit int) (*models.Timeline, error) {
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	limit = models.NormalizeLimit(limit)
	if cursor != "" && !idgen.IsPostID(cursor) {
		cursor = ""
	}

	page, err := s.timeline.QueryPage(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}

	timeline := &models.Timeline{Posts: []*models.Post{}, NextCursor: page.NextCursor}
	if len(page.Entries) == 0 {
		return timeline, nil
	}

	ids := make([]string, len(page.Entries))
	for i, e := range page.Entries {
		ids[i] = e.PostID
	}

	posts, err := s.posts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	timeline.Posts = make([]*models.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			timeline.Posts = append(timeline.Posts, p)
		}
	}
	if misses := len(ids) - len(timeline.Posts); misses > 0 {
		observability.HydrationMisses.Add(float64(misses))
	}
	return timeline, nil
}

// ReadTimeline is GetTimeline plus like counts. Enrichment is best-effort:
// a failing like store never fails the read.
func (s *TimelineService) ReadTimeline(ctx context.Context, userID, cursor string, limit int) (*models.Timeline, error) {
	span, ctx := observability.NewSpan(ctx, "TimelineService.ReadTimeline",
		attribute.String("user.id", userID))
	defer span.End()

	start := time.Now()
	timeline, err := s.GetTimeline(ctx, userID, cursor, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.TimelineReadDuration.Observe(time.Since(start).Seconds())

	if s.likes == nil || len(timeline.Posts) == 0 {
		return timeline, nil
	}

	ids := make([]string, len(timeline.Posts))
	for i, p := range timeline.Posts {
		ids[i] = p.ID
	}
	counts, err := s.likes.CountByPosts(ctx, ids)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "like enrichment skipped",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return timeline, nil
	}
	for _, p := range timeline.Posts {
		p.LikeCount = counts[p.ID]
	}
	return timeline, nil
}

// inlineExecutor runs fanout synchronously in the caller's goroutine.
type inlineExecutor struct {
	svc *TimelineService
}

func (e inlineExecutor) Submit(ctx context.Context, post *models.Post) error {
	report, err := e.svc.FanoutPost(ctx, post)
	if err != nil {
		e.svc.reporter.ReportFanoutFailure(ctx, post, report, err)
	}
	return nil
}
