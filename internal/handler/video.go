package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"highlight-ai/internal/dto"
	"highlight-ai/internal/response"
	"highlight-ai/internal/service"
	"highlight-ai/internal/types"
	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

func (h Handler) UploadVideo(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeNoVideoSource, apperrors.ErrNoVideoSource.Message, err))
		return
	}
	src, err := file.Open()
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeUploadFailed, apperrors.ErrUploadFailed.Message, err))
		return
	}
	defer src.Close()

	key, url, err := h.Service.Highlights.UploadVideo(c.Request.Context(), src, file.Size, file.Filename, logProgress("upload"))
	if err != nil {
		log.GetLogger().Error("UploadVideo failed", zap.String("file", file.Filename), zap.Error(err))
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.UploadVideoResData{Path: url, Key: key})
}

// AutoGenerate uploads one video and runs the highlight pipeline on it in a
// single request.
func (h Handler) AutoGenerate(c *gin.Context) {
	var form dto.AutoGenerateForm
	if err := c.ShouldBind(&form); err != nil {
		response.InvalidParams(c, err)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeNoVideoSource, apperrors.ErrNoVideoSource.Message, err))
		return
	}
	src, err := file.Open()
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeUploadFailed, apperrors.ErrUploadFailed.Message, err))
		return
	}
	defer src.Close()

	log.GetLogger().Info("AutoGenerate received request",
		zap.String("file", file.Filename),
		zap.Int64("size", file.Size),
		zap.Float64("target_duration", form.TargetDuration))

	result, err := h.Service.Highlights.AutoGenerate(c.Request.Context(), src, file.Size, file.Filename,
		form.Prompt, form.TargetDuration, logProgress("auto-generate"))
	if err != nil {
		log.GetLogger().Error("AutoGenerate failed", zap.Error(err))
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, result)
}

func (h Handler) GenerateHighlight(c *gin.Context) {
	var req dto.GenerateHighlightReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}
	log.GetLogger().Info("GenerateHighlight received request", zap.Strings("video_urls", req.VideoUrls))

	result, err := h.Service.Highlights.Run(c.Request.Context(), toHighlightRequest(req), logProgress("generate"))
	if err != nil {
		log.GetLogger().Error("GenerateHighlight failed", zap.Error(err))
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, result)
}

func toHighlightRequest(req dto.GenerateHighlightReq) service.HighlightRequest {
	return service.HighlightRequest{
		Sources:        lo.Map(req.VideoUrls, func(u string, _ int) types.VideoSource { return types.VideoSource{Ref: u} }),
		Prompt:         req.Prompt,
		TargetDuration: req.TargetDuration,
	}
}
