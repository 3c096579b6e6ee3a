// Package redisqueue provides a distributed admission queue for
// warm-path case-step requests, grounded on redis.Queue's
// RPush/BLPop job queue, narrowed from a generic Job{ActionID,
// QueueName,...} envelope to a StepRequest{CaseID} envelope and from
// polling helpers down to the Enqueue/Dequeue/Depth surface the
// Scheduler's doctrine.MaxQueueDepth bound needs to enforce admission
// control (spec §6's "queue" collaborator surface).
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StepRequest asks the Case Engine to step one case; enqueued when a
// case's priority lane cannot admit it immediately.
type StepRequest struct {
	CaseID     string    `json:"case_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	RetryCount int       `json:"retry_count"`
}

// Config mirrors redis.Config's recognized fields.
type Config struct {
	RedisURL  string
	KeyPrefix string
}

// Queue is a Redis-backed FIFO of pending step requests.
type Queue struct {
	client *redis.Client
	prefix string
}

func New(ctx context.Context, cfg Config) (*Queue, error) {
	url := cfg.RedisURL
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisqueue: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisqueue: ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "workflowkernel:steps:"
	}
	return &Queue{client: client, prefix: prefix}, nil
}

func (q *Queue) Close() error { return q.client.Close() }

func (q *Queue) key(lane string) string { return q.prefix + lane }

// Enqueue pushes a step request onto lane's queue.
func (q *Queue) Enqueue(ctx context.Context, lane string, req StepRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("redisqueue: marshal request: %w", err)
	}
	return q.client.RPush(ctx, q.key(lane), string(data)).Err()
}

// Dequeue blocks up to timeout waiting for a request on lane's queue.
// A nil result with no error means the timeout elapsed with nothing
// pending.
func (q *Queue) Dequeue(lane string, timeout time.Duration) (*StepRequest, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := q.client.BLPop(ctx, timeout, q.key(lane)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisqueue: dequeue: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	var req StepRequest
	if err := json.Unmarshal([]byte(result[1]), &req); err != nil {
		return nil, fmt.Errorf("redisqueue: unmarshal request: %w", err)
	}
	return &req, nil
}

// Depth returns the number of pending requests on lane's queue, used to
// enforce doctrine.MaxQueueDepth admission control.
func (q *Queue) Depth(ctx context.Context, lane string) (int, error) {
	n, err := q.client.LLen(ctx, q.key(lane)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
