package handler

import (
	"go.uber.org/zap"

	"highlight-ai/internal/appcore"
	"highlight-ai/internal/service"
	"highlight-ai/log"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) Handler {
	return Handler{Service: svc}
}

// logProgress mirrors pipeline progress of a synchronous request into the log.
func logProgress(route string) appcore.ProgressSink {
	return func(p appcore.Progress) {
		log.GetLogger().Info("pipeline progress",
			zap.String("route", route),
			zap.String("stage", p.Stage.String()),
			zap.String("source", p.Source),
			zap.Int("current", p.Current),
			zap.Int("total", p.Total),
			zap.String("message", p.Message))
	}
}
