package types

import "time"

type SourceOrigin string

const (
	SourceOriginRemote  SourceOrigin = "remote-url"
	SourceOriginPrivate SourceOrigin = "private-url"
	SourceOriginLocal   SourceOrigin = "local-path"
)

// VideoSource 待分析的视频来源
type VideoSource struct {
	Ref    string       // URL 或本地路径
	Origin SourceOrigin // 为空时由分析适配器自行判断
	Size   int64        // 已知时的字节数，未知为 0
}

// ClipDescriptor 模型返回的片段描述。Start/End/Duration 由时间戳重新计算，不信任模型给出的时长
type ClipDescriptor struct {
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Event     string  `json:"event"`
	Start     float64 `json:"-"`
	End       float64 `json:"-"`
	Duration  float64 `json:"duration"`
}

// ExtractedClip 已切出的中间文件，生命周期归属创建它的流水线调用
type ExtractedClip struct {
	Descriptor ClipDescriptor
	SourceRef  string
	Path       string
	Duration   float64 // 实测时长，探测失败时退回描述时长
}

type TrimEntry struct {
	Clip             ExtractedClip
	OriginalDuration float64
	TrimmedDuration  float64
	TrimStart        float64 // 相对片段起点的偏移
}

// TrimPlan 智能裁剪计划。Trimmed 为 false 时所有条目保持原样
type TrimPlan struct {
	Entries []TrimEntry
	Target  float64
	Total   float64
	Trimmed bool
}

// PlannedDuration returns the sum of trimmed durations.
func (p TrimPlan) PlannedDuration() float64 {
	var sum float64
	for _, e := range p.Entries {
		sum += e.TrimmedDuration
	}
	return sum
}

type SourceFailure struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// PipelineResult 一次集锦生成的结果，发布成功后一次性构造
type PipelineResult struct {
	Sources        []string        `json:"original_video"`
	FailedSources  []SourceFailure `json:"failed_sources,omitempty"`
	ObjectKey      string          `json:"object_key"`
	OutputName     string          `json:"output_video"`
	PreviewURL     string          `json:"preview_url"`
	DownloadURL    string          `json:"download_url"`
	ClipsFound     int             `json:"clips_count"`
	ClipsUsed      int             `json:"clips_used"`
	OutputDuration float64         `json:"output_duration"`
}

type HighlightJobStatus uint8

const (
	HighlightJobPending HighlightJobStatus = iota
	HighlightJobRunning
	HighlightJobSucceeded
	HighlightJobFailed
)

func (s HighlightJobStatus) String() string {
	switch s {
	case HighlightJobPending:
		return "pending"
	case HighlightJobRunning:
		return "running"
	case HighlightJobSucceeded:
		return "succeeded"
	case HighlightJobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HighlightJob 异步集锦任务记录
type HighlightJob struct {
	Id             uint64             `gorm:"primaryKey;autoIncrement" json:"-"`
	JobId          string             `gorm:"uniqueIndex;size:64" json:"job_id"`
	Sources        string             `gorm:"type:text" json:"sources"` // JSON 数组
	Prompt         string             `gorm:"type:text" json:"prompt"`
	TargetDuration float64            `json:"target_duration"`
	Status         HighlightJobStatus `gorm:"index" json:"status"`
	Stage          string             `json:"stage"`
	FailReason     string             `gorm:"type:text" json:"fail_reason,omitempty"`
	ErrorCode      int                `json:"error_code,omitempty"`
	ClipsFound     int                `json:"clips_count"`
	OutputName     string             `json:"output_video,omitempty"`
	PreviewURL     string             `gorm:"type:text" json:"preview_url,omitempty"`
	DownloadURL    string             `gorm:"type:text" json:"download_url,omitempty"`
	CreateTime     time.Time          `gorm:"autoCreateTime" json:"create_time"`
	UpdateTime     time.Time          `gorm:"autoUpdateTime" json:"update_time"`
}
