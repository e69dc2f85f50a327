package dto

// ChatStreamReq 一轮流式对话
type ChatStreamReq struct {
	Message        string   `json:"message" binding:"required"`
	Images         []string `json:"images"`
	Videos         []string `json:"videos"`
	VideoPaths     []string `json:"video_paths"`
	TargetDuration float64  `json:"target_duration" binding:"gte=0"`
}
