package types

import (
	"context"
	"io"
	"time"
)

// MediaEngine wraps the ffprobe/ffmpeg tools.
type MediaEngine interface {
	// ProbeDuration returns 0 when the duration cannot be determined.
	ProbeDuration(ctx context.Context, ref string) float64
	ExtractRange(ctx context.Context, ref string, start, duration float64, outPath string) error
	Concatenate(ctx context.Context, refs []string, outPath string) error
}

type VideoAnalyzer interface {
	AnalyzeVideo(ctx context.Context, source VideoSource, prompt string) ([]ClipDescriptor, error)
}

// ArtifactStore is an object store with presigned read URLs.
type ArtifactStore interface {
	Put(ctx context.Context, r io.Reader, size int64, contentType, ext string) (key string, err error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type ChatCompleter interface {
	ChatCompletion(ctx context.Context, prompt string) (string, error)
	// ChatCompletionStream calls onDelta for each content fragment and returns
	// the concatenated reply.
	ChatCompletionStream(ctx context.Context, prompt string, onDelta func(string) error) (string, error)
}

type IntentClassifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

type ImageGenerator interface {
	GenerateImages(ctx context.Context, prompt string) ([]GeneratedImage, error)
}

// RandomSource yields values in [0, 1).
type RandomSource interface {
	Float64() float64
}
