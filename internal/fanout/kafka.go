package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"feedline/internal/models"
	"feedline/internal/observability"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a synchronous writer that waits for all in-sync
// replicas. Messages are partitioned by key so jobs for one post stay
// ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// KafkaExecutor hands fanout to the worker fleet by publishing a FanoutJob.
type KafkaExecutor struct {
	writer messageWriter
	topic  string
}

// NewKafkaExecutor creates an executor publishing through writer.
func NewKafkaExecutor(writer messageWriter, topic string) *KafkaExecutor {
	return &KafkaExecutor{writer: writer, topic: topic}
}

// Submit publishes the fanout job for post, keyed by post ID. A returned
// error means the job was not accepted by the broker.
func (e *KafkaExecutor) Submit(ctx context.Context, post *models.Post) error {
	ctx, span := observability.GetTraceLayer().TraceMessaging(ctx, e.topic, "publish")
	defer span.End()
	span.SetAttributes(attribute.String("post.id", post.ID))

	payload, err := json.Marshal(JobFor(post, observability.ExtractCorrelationID(ctx)))
	if err != nil {
		return fmt.Errorf("encode fanout job: %w", err)
	}

	err = e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(post.ID),
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		return fmt.Errorf("publish fanout job %s: %w", post.ID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (e *KafkaExecutor) Close() error {
	return e.writer.Close()
}
