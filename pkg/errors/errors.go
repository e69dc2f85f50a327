// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeUnauthorized  = 1003
	CodeBusy          = 1004

	// Video source errors (1100-1199)
	CodeVideoDownload  = 1100
	CodeVideoNotFound  = 1102
	CodeUnsupportedURL = 1103
	CodeNoVideoSource  = 1104

	// Storage errors (1500-1599)
	CodeDBError          = 1500
	CodeFileNotFound     = 1501
	CodeFileWriteError   = 1502
	CodePublishFailed    = 1503
	CodeUploadFailed     = 1504
	CodeStoreUnavailable = 1505

	// Highlight analysis errors (1600-1699)
	CodeClipAnalysisFailed = 1600
	CodeClipExtractFailed  = 1601
	CodeNoClipsFound       = 1603

	// Media engine errors (1700-1799)
	CodeMediaEngine      = 1700
	CodeMediaToolMissing = 1701
	CodeMergeFailed      = 1702

	// Chat and generation errors (1800-1899)
	CodeClassificationFailed = 1800
	CodeImageGenerateFailed  = 1801
	CodeChatFailed           = 1802
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// InCategory reports whether err carries a code in the same hundred-block as
// category, e.g. InCategory(err, CodeMediaEngine) matches 1700-1799.
func InCategory(err error, category int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code/100 == category/100
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GetDetail extracts the operator-facing detail, if any.
func GetDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return ""
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "参数错误 Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "资源不存在 Resource not found")
	ErrUnauthorized  = New(CodeUnauthorized, "未授权 Unauthorized")
	ErrBusy          = New(CodeBusy, "服务繁忙 Server busy, try again later")

	// Video sources
	ErrVideoDownload = New(CodeVideoDownload, "视频下载失败 Video download failed")
	ErrNoVideoSource = New(CodeNoVideoSource, "未提供视频 No video provided")

	// Storage
	ErrDBError       = New(CodeDBError, "数据库错误 Database error")
	ErrFileNotFound  = New(CodeFileNotFound, "文件不存在 File not found")
	ErrPublishFailed = New(CodePublishFailed, "视频发布失败 Publishing failed")
	ErrUploadFailed  = New(CodeUploadFailed, "文件上传失败 Upload failed")

	// Highlight analysis
	ErrClipAnalysisFailed = New(CodeClipAnalysisFailed, "智能切片分析失败 Clip analysis failed")
	ErrNoClipsFound       = New(CodeNoClipsFound, "未找到符合要求的片段 No matching clips found")

	// Media engine
	ErrMediaEngine      = New(CodeMediaEngine, "视频处理失败 Media processing failed")
	ErrMediaToolMissing = New(CodeMediaToolMissing, "未安装FFmpeg FFmpeg is not installed or not on PATH")
	ErrMergeFailed      = New(CodeMergeFailed, "视频合并失败 Merging clips failed")

	// Chat
	ErrClassificationFailed = New(CodeClassificationFailed, "意图识别失败 Intent classification failed")
	ErrImageGenerateFailed  = New(CodeImageGenerateFailed, "图片生成失败 Image generation failed")
	ErrChatFailed           = New(CodeChatFailed, "对话失败 Chat failed")
)
