package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "highlight-ai/pkg/errors"
)

// Response is the envelope of every JSON API reply. Error 0 means success.
type Response struct {
	Error  int32  `json:"error"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Error: 0,
		Msg:   "成功 Success",
		Data:  data,
	})
}

// FromError converts an error to a Response. Errors that are not AppErrors
// get CodeUnknown and their own text as the message.
func FromError(err error) Response {
	if err == nil {
		return Response{Msg: "成功 Success"}
	}
	return Response{
		Error:  int32(apperrors.GetCode(err)),
		Msg:    apperrors.GetMessage(err),
		Detail: apperrors.GetDetail(err),
	}
}

// ErrorResponse replies with HTTP 200 and the error code in the envelope, so
// clients branch on Response.Error only.
func ErrorResponse(c *gin.Context, err error) {
	c.JSON(http.StatusOK, FromError(err))
}

// InvalidParams reports a request binding failure.
func InvalidParams(c *gin.Context, err error) {
	ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err.Error(), err))
}

// NotFound is used for raw file routes, where a JSON 200 would be mistaken
// for file content.
func NotFound(c *gin.Context, err error) {
	c.JSON(http.StatusNotFound, FromError(err))
}
