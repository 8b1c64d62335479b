package service

import (
	"context"
	"errors"
	"log/slog"

	"feedline/internal/models"
	"feedline/internal/observability"
	"feedline/internal/repository"
)

// DeliveryReporter receives fanout runs that did not reach every follower.
// Reporting never fails the caller.
type DeliveryReporter interface {
	ReportFanoutFailure(ctx context.Context, post *models.Post, report *FanoutReport, err error)
}

// StageOf extracts the failure stage from a fanout error.
func StageOf(err error) string {
	var fe *FanoutError
	if errors.As(err, &fe) {
		return fe.Stage
	}
	return "unknown"
}

// LogReporter logs degraded fanouts and counts them.
type LogReporter struct{}

func (LogReporter) ReportFanoutFailure(ctx context.Context, post *models.Post, report *FanoutReport, err error) {
	stage := StageOf(err)
	observability.FanoutFailuresTotal.WithLabelValues(stage).Inc()

	attrs := []any{
		slog.String("post_id", post.ID),
		slog.String("author_id", post.AuthorID),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
		slog.String("correlation_id", observability.ExtractCorrelationID(ctx)),
	}
	if report != nil {
		attrs = append(attrs,
			slog.Int("followers", report.Followers),
			slog.Int("delivered", report.Delivered),
			slog.Int("failed", report.Failed),
		)
	}
	observability.GlobalLogger.WarnContext(ctx, "fanout incomplete", attrs...)
}

// LedgerReporter records degraded fanouts for redelivery, then forwards
// them to next.
type LedgerReporter struct {
	ledger repository.FanoutFailureRepository
	next   DeliveryReporter
}

// NewLedgerReporter creates a LedgerReporter in front of LogReporter.
func NewLedgerReporter(ledger repository.FanoutFailureRepository) *LedgerReporter {
	return &LedgerReporter{ledger: ledger, next: LogReporter{}}
}

func (r *LedgerReporter) ReportFanoutFailure(ctx context.Context, post *models.Post, report *FanoutReport, err error) {
	r.next.ReportFanoutFailure(ctx, post, report, err)

	failed := 0
	if report != nil {
		failed = report.Failed
	}
	// The request that triggered fanout may already be gone.
	if recErr := r.ledger.Record(context.WithoutCancel(ctx), post, failed, err); recErr != nil {
		observability.GlobalLogger.ErrorContext(ctx, "failed to record fanout failure",
			slog.String("post_id", post.ID),
			slog.String("error", recErr.Error()),
		)
	}
}
