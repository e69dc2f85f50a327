package handler

import (
	"github.com/gin-gonic/gin"

	"highlight-ai/internal/dto"
	"highlight-ai/internal/response"
)

func (h Handler) SubmitJob(c *gin.Context) {
	var req dto.GenerateHighlightReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}
	job, err := h.Service.Jobs.Submit(c.Request.Context(), toHighlightRequest(req))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.SubmitJobResData{JobId: job.JobId})
}

func (h Handler) GetJob(c *gin.Context) {
	job, err := h.Service.Jobs.Get(c.Param("jobId"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, job)
}

func (h Handler) ListJobs(c *gin.Context) {
	var req dto.ListJobsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}
	jobs, err := h.Service.Jobs.List(req.Limit)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, jobs)
}
