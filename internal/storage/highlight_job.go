package storage

import (
	"errors"
	"highlight-ai/internal/types"

	"gorm.io/gorm"
)

var errDBNotInitialized = errors.New("database not initialized")

// SaveJob upserts by JobId.
func SaveJob(job *types.HighlightJob) error {
	if DB == nil {
		return errDBNotInitialized
	}
	var existing types.HighlightJob
	result := DB.Where("job_id = ?", job.JobId).First(&existing)

	if result.Error == nil {
		job.Id = existing.Id
		job.CreateTime = existing.CreateTime
		return DB.Save(job).Error
	} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return DB.Create(job).Error
	}
	return result.Error
}

func GetJob(jobId string) (*types.HighlightJob, error) {
	if DB == nil {
		return nil, errDBNotInitialized
	}
	var job types.HighlightJob
	if err := DB.Where("job_id = ?", jobId).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func ListJobs(limit int) ([]types.HighlightJob, error) {
	if DB == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = 20
	}
	var jobs []types.HighlightJob
	if err := DB.Order("create_time desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateJobStage records the latest pipeline stage without touching the rest
// of the row.
func UpdateJobStage(jobId string, status types.HighlightJobStatus, stage string) error {
	if DB == nil {
		return errDBNotInitialized
	}
	return DB.Model(&types.HighlightJob{}).
		Where("job_id = ?", jobId).
		Updates(map[string]interface{}{"status": status, "stage": stage}).Error
}

// MarkStaleJobs fails every job left running by a previous process.
func MarkStaleJobs() (int64, error) {
	if DB == nil {
		return 0, errDBNotInitialized
	}
	result := DB.Model(&types.HighlightJob{}).
		Where("status = ?", types.HighlightJobRunning).
		Updates(map[string]interface{}{
			"status":      types.HighlightJobFailed,
			"fail_reason": "服务重启，任务被中断 Job interrupted by server restart",
		})
	return result.RowsAffected, result.Error
}
