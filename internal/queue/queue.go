// Package queue runs highlight jobs on Redis through Asynq so they survive
// restarts and are retried.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"highlight-ai/log"
)

// Task type names
const (
	TypeHighlightJob = "highlight:generate"
)

// HighlightJobPayload points at a persisted job record.
type HighlightJobPayload struct {
	JobID string `json:"job_id"`
}

// QueueConfig holds Redis configuration for Asynq
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Queue manages task enqueueing and processing
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	config QueueConfig
}

func DefaultConfig() QueueConfig {
	return QueueConfig{
		RedisAddr:   "localhost:6379",
		RedisDB:     0,
		Concurrency: 3,
	}
}

func NewQueue(cfg QueueConfig) *Queue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			RetryDelayFunc: retryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.GetLogger().Error("Task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	return &Queue{
		client: asynq.NewClient(redisOpt),
		server: server,
		config: cfg,
	}
}

// retryDelay backs off exponentially: 10s, 20s, 40s, ...
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(10<<uint(n)) * time.Second
}

// NewHighlightTask builds the asynq task for one job.
func NewHighlightTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(HighlightJobPayload{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeHighlightJob, data,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("default"),
		asynq.TaskID(jobID),
	), nil
}

// Dispatch enqueues a highlight job. It satisfies service.JobDispatcher.
func (q *Queue) Dispatch(ctx context.Context, jobID string) error {
	task, err := NewHighlightTask(jobID)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.GetLogger().Info("Highlight job enqueued",
		zap.String("job_id", jobID),
		zap.String("queue_id", info.ID),
		zap.String("queue", info.Queue))
	return nil
}

// Close gracefully shuts down the queue
func (q *Queue) Close() error {
	q.server.Shutdown()
	return q.client.Close()
}
