package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedline/internal/observability"
	"feedline/internal/service"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader creates a consumer-group reader for the fanout topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  2 * time.Second,
	})
}

// Worker consumes fanout jobs and runs them. Offsets are committed after
// each job; incomplete runs go to the DeliveryReporter instead of being
// redelivered by Kafka.
type Worker struct {
	reader   messageReader
	fanout   service.Fanouter
	reporter service.DeliveryReporter
	topic    string
}

// NewWorker creates a worker.
func NewWorker(reader messageReader, fanout service.Fanouter, reporter service.DeliveryReporter, topic string) *Worker {
	return &Worker{reader: reader, fanout: fanout, reporter: reporter, topic: topic}
}

// Run processes messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch fanout job: %w", err)
		}

		_ = w.Handle(ctx, msg)

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit fanout job offset %d: %w", msg.Offset, err)
		}
	}
}

// Handle runs one fanout job. Undecodable messages are logged and dropped.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	job, err := DecodeJob(msg.Value)
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "dropping malformed fanout job",
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return err
	}

	correlationID := job.CorrelationID
	if correlationID == "" {
		correlationID = observability.GenerateCorrelationID()
	}
	ctx = observability.WithCorrelationID(ctx, correlationID)
	ctx, span := observability.GetTraceLayer().TraceMessaging(ctx, w.topic, "process")
	defer span.End()

	fields := map[string]interface{}{
		"post_id":       job.PostID,
		"queue_latency": time.Since(job.EnqueuedAt).String(),
	}
	observability.LogAsyncOperationStart(ctx, "fanout_job", fields)

	post := job.Post()
	report, err := w.fanout.FanoutPost(ctx, post)
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		w.reporter.ReportFanoutFailure(ctx, post, report, err)
		observability.LogAsyncOperationError(ctx, "fanout_job", err, fields)
		return err
	}

	fields["followers"] = report.Followers
	observability.LogAsyncOperationEnd(ctx, "fanout_job", fields)
	return nil
}

// Close closes the underlying reader.
func (w *Worker) Close() error {
	return w.reader.Close()
}
