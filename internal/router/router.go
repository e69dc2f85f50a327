package router

import (
	"github.com/gin-gonic/gin"

	"highlight-ai/internal/handler"
	"highlight-ai/internal/service"
	"highlight-ai/internal/storage"
)

func SetupRouter(r *gin.Engine, svc *service.Service) {
	hdl := handler.NewHandler(svc)

	api := r.Group("/api")
	{
		api.GET("/health", hdl.Health)

		api.POST("/video/upload", hdl.UploadVideo)
		api.POST("/video/auto-generate", hdl.AutoGenerate)
		api.POST("/video/generate", hdl.GenerateHighlight)
		api.POST("/video/jobs", hdl.SubmitJob)
		api.GET("/video/jobs", hdl.ListJobs)
		api.GET("/video/jobs/:jobId", hdl.GetJob)

		api.POST("/chat/stream", hdl.ChatStream)
	}

	r.GET(storage.PublishedRoute+":key", hdl.DownloadPublished)
	r.HEAD(storage.PublishedRoute+":key", hdl.DownloadPublished)
}
