// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"highlight-ai/internal/types"
)

// MockMediaEngine is a mock implementation of types.MediaEngine
type MockMediaEngine struct {
	mock.Mock
}

func (m *MockMediaEngine) ProbeDuration(ctx context.Context, ref string) float64 {
	args := m.Called(ctx, ref)
	return args.Get(0).(float64)
}

func (m *MockMediaEngine) ExtractRange(ctx context.Context, ref string, start, duration float64, outPath string) error {
	args := m.Called(ctx, ref, start, duration, outPath)
	return args.Error(0)
}

func (m *MockMediaEngine) Concatenate(ctx context.Context, refs []string, outPath string) error {
	args := m.Called(ctx, refs, outPath)
	return args.Error(0)
}

// MockVideoAnalyzer is a mock implementation of types.VideoAnalyzer
type MockVideoAnalyzer struct {
	mock.Mock
}

func (m *MockVideoAnalyzer) AnalyzeVideo(ctx context.Context, source types.VideoSource, prompt string) ([]types.ClipDescriptor, error) {
	args := m.Called(ctx, source, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ClipDescriptor), args.Error(1)
}

// MockArtifactStore is a mock implementation of types.ArtifactStore.
// The reader passed to Put is drained so callers can close it safely.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Put(ctx context.Context, r io.Reader, size int64, contentType, ext string) (string, error) {
	if r != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	args := m.Called(ctx, size, contentType, ext)
	return args.String(0), args.Error(1)
}

func (m *MockArtifactStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockArtifactStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockChatCompleter is a mock implementation of types.ChatCompleter.
// For streaming, the second return value lists the deltas to emit.
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) ChatCompletion(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockChatCompleter) ChatCompletionStream(ctx context.Context, prompt string, onDelta func(string) error) (string, error) {
	args := m.Called(ctx, prompt)
	if deltas, ok := args.Get(0).([]string); ok {
		var full string
		for _, d := range deltas {
			if err := onDelta(d); err != nil {
				return full, err
			}
			full += d
		}
		return full, args.Error(1)
	}
	return "", args.Error(1)
}

// MockIntentClassifier is a mock implementation of types.IntentClassifier
type MockIntentClassifier struct {
	mock.Mock
}

func (m *MockIntentClassifier) Classify(ctx context.Context, text string) (types.Intent, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(types.Intent), args.Error(1)
}

// MockImageGenerator is a mock implementation of types.ImageGenerator
type MockImageGenerator struct {
	mock.Mock
}

func (m *MockImageGenerator) GenerateImages(ctx context.Context, prompt string) ([]types.GeneratedImage, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.GeneratedImage), args.Error(1)
}
