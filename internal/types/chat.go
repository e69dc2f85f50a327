package types

type IntentCategory string

const (
	IntentChat            IntentCategory = "chat"
	IntentImageGeneration IntentCategory = "image_generation"
	IntentVideoGeneration IntentCategory = "video_generation"
)

var IntentCategories = []IntentCategory{IntentChat, IntentImageGeneration, IntentVideoGeneration}

// Intent 每轮对话的意图识别结果，兜底永远是 chat
type Intent struct {
	Category   IntentCategory `json:"intent"`
	Confidence float64        `json:"confidence"`
}

type ChatEventType string

const (
	ChatEventProgress ChatEventType = "progress"
	ChatEventDelta    ChatEventType = "delta"
	ChatEventComplete ChatEventType = "complete"
	ChatEventError    ChatEventType = "error"
)

// IsTerminal reports whether no further events may follow.
func (t ChatEventType) IsTerminal() bool {
	return t == ChatEventComplete || t == ChatEventError
}

// ChatEvent 流式推送给客户端的事件
type ChatEvent struct {
	Type    ChatEventType `json:"type"`
	Content string        `json:"content,omitempty"`
	Data    any           `json:"data,omitempty"`
}

// GeneratedImage 图片生成结果，Data 为原始字节
type GeneratedImage struct {
	Filename    string
	ContentType string
	Data        []byte
}
