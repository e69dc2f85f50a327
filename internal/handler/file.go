package handler

import (
	"errors"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"highlight-ai/internal/response"
	"highlight-ai/internal/storage"
	apperrors "highlight-ai/pkg/errors"
)

// DownloadPublished serves objects of the local artifact store through the
// links it hands out.
func (h Handler) DownloadPublished(c *gin.Context) {
	if h.Service == nil || h.Service.LocalStore == nil {
		response.NotFound(c, apperrors.ErrNotFound)
		return
	}

	key := c.Param("key")
	path, err := h.Service.LocalStore.Resolve(key, c.Query("expires"))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			response.NotFound(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, key, err))
			return
		}
		response.NotFound(c, apperrors.Wrap(apperrors.CodeFileNotFound, apperrors.ErrFileNotFound.Message, err))
		return
	}

	if c.Query("download") != "" {
		c.FileAttachment(path, filepath.Base(path))
		return
	}
	c.File(path)
}
