package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"highlight-ai/internal/dto"
	"highlight-ai/internal/response"
	"highlight-ai/internal/service"
	"highlight-ai/log"
)

// ChatStream answers one chat turn as server-sent events named after the
// event type. The stream ends after the complete or error event.
func (h Handler) ChatStream(c *gin.Context) {
	var req dto.ChatStreamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	events, err := h.Service.Chat.StreamChat(c.Request.Context(), service.ChatRequest{
		Message:        req.Message,
		Images:         req.Images,
		Videos:         req.Videos,
		VideoPaths:     req.VideoPaths,
		TargetDuration: req.TargetDuration,
	})
	if err != nil {
		log.GetLogger().Warn("ChatStream rejected", zap.Error(err))
		response.ErrorResponse(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	// open the stream now; the turn may wait in the pool before its first event
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Type), ev)
		return true
	})
}
