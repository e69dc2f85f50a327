package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

// JobExecutor runs a persisted highlight job. service.JobService satisfies it.
type JobExecutor interface {
	Execute(ctx context.Context, jobID string) error
}

// TaskHandlers provides handlers for different task types
type TaskHandlers struct {
	jobs JobExecutor
}

func NewTaskHandlers(jobs JobExecutor) *TaskHandlers {
	return &TaskHandlers{jobs: jobs}
}

// HandleHighlightJob runs one job. Failures that a retry cannot fix are not
// retried.
func (h *TaskHandlers) HandleHighlightJob(ctx context.Context, t *asynq.Task) error {
	var payload HighlightJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	log.GetLogger().Info("[Queue] Processing highlight job", zap.String("job_id", payload.JobID))

	if err := h.jobs.Execute(ctx, payload.JobID); err != nil {
		if !retryable(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	log.GetLogger().Info("[Queue] Highlight job completed", zap.String("job_id", payload.JobID))
	return nil
}

// retryable reports whether running the job again could succeed. Bad input
// and empty analysis results are final.
func retryable(err error) bool {
	switch apperrors.GetCode(err) {
	case apperrors.CodeNotFound, apperrors.CodeInvalidParams, apperrors.CodeNoVideoSource,
		apperrors.CodeNoClipsFound, apperrors.CodeMediaToolMissing:
		return false
	}
	return true
}

// RegisterHandlers registers all task handlers with the Asynq server mux
func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeHighlightJob, h.HandleHighlightJob)
}

// StartWorker starts the Asynq worker in the background. Queue.Close stops it.
func StartWorker(q *Queue, jobs JobExecutor) error {
	mux := asynq.NewServeMux()
	NewTaskHandlers(jobs).RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] Starting worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency))

	return q.server.Start(mux)
}
