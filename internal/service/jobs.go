package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"highlight-ai/internal/appcore"
	"highlight-ai/internal/storage"
	"highlight-ai/internal/taskrunner"
	"highlight-ai/internal/types"
	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

// JobDispatcher hands a persisted job to whatever executes it.
type JobDispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

// JobService runs highlight requests in the background and keeps their state
// in the job table.
type JobService struct {
	pipeline   *HighlightPipeline
	dispatcher JobDispatcher
}

func NewJobService(pipeline *HighlightPipeline) *JobService {
	return &JobService{pipeline: pipeline}
}

// SetDispatcher picks the executor. Without one, jobs run on a goroutine.
func (s *JobService) SetDispatcher(d JobDispatcher) {
	s.dispatcher = d
}

// Submit records a pending job and dispatches it.
func (s *JobService) Submit(ctx context.Context, req HighlightRequest) (*types.HighlightJob, error) {
	refs := lo.FilterMap(req.Sources, func(src types.VideoSource, _ int) (string, bool) {
		ref := strings.TrimSpace(src.Ref)
		return ref, ref != ""
	})
	if len(refs) == 0 {
		return nil, apperrors.ErrNoVideoSource
	}
	encoded, err := json.Marshal(refs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidParams, "参数错误 Invalid parameters", err)
	}

	job := &types.HighlightJob{
		JobId:          uuid.New().String(),
		Sources:        string(encoded),
		Prompt:         req.Prompt,
		TargetDuration: req.TargetDuration,
		Status:         types.HighlightJobPending,
		Stage:          "queued",
	}
	if err = storage.SaveJob(job); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}

	if err = s.dispatch(ctx, job.JobId); err != nil {
		job.Status = types.HighlightJobFailed
		job.FailReason = err.Error()
		job.ErrorCode = apperrors.GetCode(err)
		_ = storage.SaveJob(job)
		return nil, err
	}
	log.GetLogger().Info("集锦任务已提交 highlight job submitted", zap.String("job_id", job.JobId), zap.Int("sources", len(refs)))
	return job, nil
}

func (s *JobService) dispatch(ctx context.Context, jobID string) error {
	if s.dispatcher != nil {
		return s.dispatcher.Dispatch(ctx, jobID)
	}
	go func() {
		_ = s.Execute(context.Background(), jobID)
	}()
	return nil
}

// Execute runs a stored job to completion and records the outcome. It is the
// entry point for both in-process and queue workers.
func (s *JobService) Execute(ctx context.Context, jobID string) error {
	job, err := storage.GetJob(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	if job.Status == types.HighlightJobSucceeded {
		return nil
	}

	var refs []string
	if err = json.Unmarshal([]byte(job.Sources), &refs); err != nil {
		return s.finishFailed(job, apperrors.Wrap(apperrors.CodeInvalidParams, "任务来源无效 Invalid job sources", err))
	}

	job.Status = types.HighlightJobRunning
	job.Stage = appcore.StageAnalyzing.String()
	job.FailReason = ""
	job.ErrorCode = 0
	if err = storage.SaveJob(job); err != nil {
		return apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}

	sink := appcore.ProgressSink(func(p appcore.Progress) {
		if p.Stage.IsTerminal() {
			return
		}
		if err := storage.UpdateJobStage(jobID, types.HighlightJobRunning, p.Stage.String()); err != nil {
			log.GetLogger().Warn("更新任务阶段失败 failed to record job stage", zap.String("job_id", jobID), zap.Error(err))
		}
	})

	result, runErr := s.pipeline.Run(ctx, HighlightRequest{
		Sources:        lo.Map(refs, func(r string, _ int) types.VideoSource { return types.VideoSource{Ref: r} }),
		Prompt:         job.Prompt,
		TargetDuration: job.TargetDuration,
	}, sink)
	if runErr != nil {
		return s.finishFailed(job, runErr)
	}

	job.Status = types.HighlightJobSucceeded
	job.Stage = appcore.StageSucceeded.String()
	job.ClipsFound = result.ClipsFound
	job.OutputName = result.OutputName
	job.PreviewURL = result.PreviewURL
	job.DownloadURL = result.DownloadURL
	if err = storage.SaveJob(job); err != nil {
		return apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	return nil
}

func (s *JobService) finishFailed(job *types.HighlightJob, cause error) error {
	job.Status = types.HighlightJobFailed
	job.Stage = appcore.StageFailed.String()
	job.ErrorCode = apperrors.GetCode(cause)
	job.FailReason = apperrors.GetMessage(cause)
	if detail := apperrors.GetDetail(cause); detail != "" {
		job.FailReason += ": " + detail
	}
	if err := storage.SaveJob(job); err != nil {
		log.GetLogger().Error("保存任务失败状态出错 failed to record job failure", zap.String("job_id", job.JobId), zap.Error(err))
	}
	log.GetLogger().Warn("集锦任务失败 highlight job failed", zap.String("job_id", job.JobId), zap.Error(cause))
	return cause
}

func (s *JobService) Get(jobID string) (*types.HighlightJob, error) {
	job, err := storage.GetJob(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	return job, nil
}

func (s *JobService) List(limit int) ([]types.HighlightJob, error) {
	jobs, err := storage.ListJobs(limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
	}
	return jobs, nil
}

// PoolDispatcher executes jobs on the in-process worker pool.
type PoolDispatcher struct {
	pool Submitter
	jobs *JobService
}

func NewPoolDispatcher(pool Submitter, jobs *JobService) *PoolDispatcher {
	return &PoolDispatcher{pool: pool, jobs: jobs}
}

func (d *PoolDispatcher) Dispatch(_ context.Context, jobID string) error {
	err := d.pool.Submit("highlight_job:"+jobID, func(ctx context.Context) {
		_ = d.jobs.Execute(ctx, jobID)
	})
	if errors.Is(err, taskrunner.ErrQueueFull) {
		return apperrors.Wrap(apperrors.CodeBusy, apperrors.ErrBusy.Message, err)
	}
	return err
}
