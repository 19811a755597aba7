package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	QueueProcessScript = "queue:process_script"
	QueueConcatenate   = "queue:concatenate"
	QueueRegenerate    = "queue:regenerate"
)

type Queue struct {
	client *redis.Client
}

type Task struct {
	ID        uuid.UUID              `json:"id"`
	Type      string                 `json:"type"`
	JobID     uuid.UUID              `json:"job_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, task *Task) error {
	task.CreatedAt = time.Now()

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Task, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No task available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

// EnqueueProcessScript enqueues a script processing run for a job
func (q *Queue) EnqueueProcessScript(ctx context.Context, jobID uuid.UUID) error {
	task := &Task{
		ID:    uuid.New(),
		Type:  "process_script",
		JobID: jobID,
	}
	return q.Enqueue(ctx, QueueProcessScript, task)
}

// EnqueueConcatenate enqueues timeline concatenation for a job
func (q *Queue) EnqueueConcatenate(ctx context.Context, jobID uuid.UUID) error {
	task := &Task{
		ID:    uuid.New(),
		Type:  "concatenate",
		JobID: jobID,
	}
	return q.Enqueue(ctx, QueueConcatenate, task)
}

// EnqueueRegenerate enqueues replacement of a single content record.
// query is optional; empty reuses the record's stored search query.
func (q *Queue) EnqueueRegenerate(ctx context.Context, jobID, contentID uuid.UUID, query string) error {
	task := &Task{
		ID:    uuid.New(),
		Type:  "regenerate_content",
		JobID: jobID,
		Data: map[string]interface{}{
			"content_id": contentID.String(),
			"query":      query,
		},
	}
	return q.Enqueue(ctx, QueueRegenerate, task)
}
