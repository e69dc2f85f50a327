package dto

// GenerateHighlightReq 根据已上传视频生成集锦
type GenerateHighlightReq struct {
	VideoUrls      []string `json:"video_urls" binding:"required,min=1"`
	Prompt         string   `json:"prompt"`
	TargetDuration float64  `json:"target_duration" binding:"gte=0"`
}

// AutoGenerateForm multipart 表单，file 字段单独读取
type AutoGenerateForm struct {
	Prompt         string  `form:"prompt"`
	TargetDuration float64 `form:"targetDuration" binding:"gte=0"`
}

type UploadVideoResData struct {
	Path string `json:"path"`
	Key  string `json:"key"`
}

type SubmitJobResData struct {
	JobId string `json:"job_id"`
}

type ListJobsReq struct {
	Limit int `form:"limit" binding:"gte=0,lte=200"`
}
