package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"highlight-ai/config"
	"highlight-ai/internal/deps"
	"highlight-ai/internal/dto"
	"highlight-ai/internal/response"
	"highlight-ai/internal/storage"
)

var resolveDependencies = func() []deps.DependencyState {
	return deps.ResolveDependencyInventory(storage.FfmpegPath, storage.FfprobePath)
}

func (h Handler) Health(c *gin.Context) {
	states := resolveDependencies()
	data := dto.HealthResData{
		Status: "ok",
		Dependencies: lo.Map(states, func(s deps.DependencyState, _ int) dto.DependencyStatus {
			return dto.DependencyStatus{
				Name:   s.Name,
				Tier:   string(s.Tier),
				Status: string(s.Status),
				Path:   s.ResolvedPath,
				Error:  s.Error,
			}
		}),
		StorageProvider: config.Conf.Storage.Provider,
		IntentProvider:  config.Conf.Intent.Provider,
		AsyncQueue:      "in-process",
	}
	if config.Conf.Queue.Enabled {
		data.AsyncQueue = "asynq"
	}
	if lo.ContainsBy(states, func(s deps.DependencyState) bool {
		return s.Tier == deps.DependencyTierMust && s.Status != deps.DependencyStatusOK
	}) {
		data.Status = "degraded"
	}
	if h.Service != nil {
		data.ImageGeneration = h.Service.Images != nil
		if h.Service.Pool != nil {
			data.Workers = h.Service.Pool.Running()
			data.PendingTasks = h.Service.Pool.Pending()
		}
	}
	response.Success(c, data)
}
