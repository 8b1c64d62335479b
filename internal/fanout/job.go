// Package fanout runs follower fanout asynchronously through Kafka: an
// executor that publishes jobs and a worker that consumes them.
package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"feedline/internal/models"
)

// FanoutJob is the Kafka message body. It carries everything fanout needs,
// so the worker never reads the post store.
type FanoutJob struct {
	PostID        string    `json:"postId"`
	AuthorID      string    `json:"authorId"`
	CreatedAt     time.Time `json:"createdAt"`
	CorrelationID string    `json:"correlationId,omitempty"`
	EnqueuedAt    time.Time `json:"enqueuedAt"`
}

// JobFor builds the job for post.
func JobFor(post *models.Post, correlationID string) FanoutJob {
	return FanoutJob{
		PostID:        post.ID,
		AuthorID:      post.AuthorID,
		CreatedAt:     post.CreatedAt,
		CorrelationID: correlationID,
		EnqueuedAt:    time.Now().UTC(),
	}
}

// Post returns the post fields fanout uses.
func (j FanoutJob) Post() *models.Post {
	return &models.Post{ID: j.PostID, AuthorID: j.AuthorID, CreatedAt: j.CreatedAt}
}

// DecodeJob parses and validates a message body.
func DecodeJob(data []byte) (FanoutJob, error) {
	var job FanoutJob
	if err := json.Unmarshal(data, &job); err != nil {
		return job, fmt.Errorf("decode fanout job: %w", err)
	}
	if job.PostID == "" || job.AuthorID == "" {
		return job, fmt.Errorf("decode fanout job: postId and authorId are required")
	}
	return job, nil
}
