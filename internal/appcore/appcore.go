package appcore

import "time"

// Stage is a highlight pipeline state. Transitions are linear up to
// CleaningUp, which always runs, followed by one terminal stage.
type Stage uint8

const (
	StageUploading Stage = iota + 1
	StageAnalyzing
	StageExtracting
	StageTrimming
	StageMerging
	StagePublishing
	StageCleaningUp
	StageSucceeded
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageUploading:
		return "uploading"
	case StageAnalyzing:
		return "analyzing"
	case StageExtracting:
		return "extracting"
	case StageTrimming:
		return "trimming"
	case StageMerging:
		return "merging"
	case StagePublishing:
		return "publishing"
	case StageCleaningUp:
		return "cleaning_up"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Stage) IsTerminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// Progress is one stage transition, optionally scoped to a source.
type Progress struct {
	Stage      Stage
	Source     string
	Current    int
	Total      int
	Message    string
	OccurredAt time.Time
}

// ProgressSink receives stage transitions. Implementations must not block
// for long; the pipeline calls them inline.
type ProgressSink func(Progress)

// Emit is nil-safe.
func (f ProgressSink) Emit(p Progress) {
	if f == nil {
		return
	}
	if p.OccurredAt.IsZero() {
		p.OccurredAt = time.Now()
	}
	f(p)
}
