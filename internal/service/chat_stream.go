package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"highlight-ai/internal/appcore"
	"highlight-ai/internal/taskrunner"
	"highlight-ai/internal/types"
	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

const (
	VideoGuidanceNotice = "Please provide video(s) for editing."
	chatEventBuffer     = 16
)

var errStreamClosed = errors.New("event stream closed")

// ChatRequest 一轮流式对话的输入
type ChatRequest struct {
	Message        string
	Images         []string
	Videos         []string
	VideoPaths     []string
	TargetDuration float64
}

// Submitter queues background work. taskrunner.Runner satisfies it.
type Submitter interface {
	Submit(name string, fn taskrunner.TaskFunc) error
}

// ChatStreamer routes a chat turn and streams its outcome as ordered events.
type ChatStreamer struct {
	router     *IntentRouter
	highlights *HighlightPipeline
	images     types.ImageGenerator
	chat       types.ChatCompleter
	store      types.ArtifactStore
	pool       Submitter
	presignTTL time.Duration
}

func NewChatStreamer(router *IntentRouter, highlights *HighlightPipeline, images types.ImageGenerator,
	chat types.ChatCompleter, store types.ArtifactStore, pool Submitter, presignTTL time.Duration) *ChatStreamer {
	if presignTTL <= 0 {
		presignTTL = defaultPresignTTL
	}
	return &ChatStreamer{
		router:     router,
		highlights: highlights,
		images:     images,
		chat:       chat,
		store:      store,
		pool:       pool,
		presignTTL: presignTTL,
	}
}

// eventEmitter is owned by the single producer goroutine. It enforces one
// terminal event and a single close.
type eventEmitter struct {
	ctx      context.Context
	out      chan types.ChatEvent
	finished bool
	once     sync.Once
}

func (e *eventEmitter) emit(ev types.ChatEvent) bool {
	if e.finished {
		return false
	}
	if ev.Type.IsTerminal() {
		e.finished = true
	}
	select {
	case e.out <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *eventEmitter) progress(msg string) bool {
	return e.emit(types.ChatEvent{Type: types.ChatEventProgress, Content: msg})
}

func (e *eventEmitter) delta(text string) bool {
	return e.emit(types.ChatEvent{Type: types.ChatEventDelta, Content: text})
}

func (e *eventEmitter) complete(content string, data any) {
	e.emit(types.ChatEvent{Type: types.ChatEventComplete, Content: content, Data: data})
}

func (e *eventEmitter) fail(prefix string, err error) {
	e.emit(types.ChatEvent{Type: types.ChatEventError, Content: humanError(prefix, err)})
}

func (e *eventEmitter) close() {
	e.once.Do(func() { close(e.out) })
}

func humanError(prefix string, err error) string {
	msg := apperrors.GetMessage(err)
	if raw := err.Error(); raw != msg {
		return fmt.Sprintf("%s: %s (%s)", prefix, msg, raw)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// StreamChat returns immediately with the event channel; the turn runs on
// the worker pool. A saturated pool is reported here and nothing streams.
func (s *ChatStreamer) StreamChat(ctx context.Context, req ChatRequest) (<-chan types.ChatEvent, error) {
	em := &eventEmitter{ctx: ctx, out: make(chan types.ChatEvent, chatEventBuffer)}

	err := s.pool.Submit("chat_stream", func(workerCtx context.Context) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(workerCtx, cancel)
		defer stop()

		defer em.close()
		defer func() {
			if r := recover(); r != nil {
				log.GetLogger().Error("chat stream panicked", zap.Any("panic", r), zap.Stack("stack"))
				em.fail("处理失败 Request failed", fmt.Errorf("internal error: %v", r))
			}
			if !em.finished {
				em.fail("处理失败 Request failed", errors.New("stream ended without a result"))
			}
		}()

		s.handle(runCtx, req, em)
	})
	if err != nil {
		if errors.Is(err, taskrunner.ErrQueueFull) {
			return nil, apperrors.Wrap(apperrors.CodeBusy, apperrors.ErrBusy.Message, err)
		}
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "服务不可用 Service unavailable", err)
	}
	return em.out, nil
}

func (s *ChatStreamer) handle(ctx context.Context, req ChatRequest, em *eventEmitter) {
	if len(req.Images) > 0 {
		log.GetLogger().Info("chat stream received images", zap.Int("count", len(req.Images)))
	}
	intent := s.router.Route(ctx, req.Message)
	switch intent.Category {
	case types.IntentVideoGeneration:
		s.handleVideo(ctx, req, em)
	case types.IntentImageGeneration:
		s.handleImage(ctx, req, em)
	default:
		s.handleChat(ctx, req, em)
	}
}

func (s *ChatStreamer) handleVideo(ctx context.Context, req ChatRequest, em *eventEmitter) {
	refs := lo.Uniq(lo.Filter(append(append([]string{}, req.Videos...), req.VideoPaths...), func(r string, _ int) bool {
		return strings.TrimSpace(r) != ""
	}))
	if len(refs) == 0 {
		em.complete(VideoGuidanceNotice, nil)
		return
	}
	if s.highlights == nil {
		em.fail("生成视频失败 Video generation failed", errors.New("highlight pipeline is not configured"))
		return
	}

	em.progress(fmt.Sprintf("Processing %d video(s)...", len(refs)))
	sink := appcore.ProgressSink(func(p appcore.Progress) {
		if p.Stage.IsTerminal() || p.Stage == appcore.StageCleaningUp {
			return
		}
		em.progress(describeStage(p))
	})

	sources := lo.Map(refs, func(r string, _ int) types.VideoSource { return types.VideoSource{Ref: r} })
	result, err := s.highlights.Run(ctx, HighlightRequest{
		Sources:        sources,
		Prompt:         req.Message,
		TargetDuration: req.TargetDuration,
	}, sink)
	if err != nil {
		em.fail("生成视频失败 Video generation failed", err)
		return
	}

	content := fmt.Sprintf("Highlight video ready (%d clips, %.1fs).\n\n<video controls src=\"%s\"></video>\n\n[Download](%s)",
		result.ClipsUsed, result.OutputDuration, result.PreviewURL, result.DownloadURL)
	em.complete(content, result)
}

func describeStage(p appcore.Progress) string {
	var b strings.Builder
	b.WriteString(p.Stage.String())
	if p.Total > 0 && p.Current > 0 {
		fmt.Fprintf(&b, " [%d/%d]", p.Current, p.Total)
	}
	if p.Message != "" {
		b.WriteString(": ")
		b.WriteString(p.Message)
	}
	return b.String()
}

func (s *ChatStreamer) handleImage(ctx context.Context, req ChatRequest, em *eventEmitter) {
	if s.images == nil {
		em.fail("生成图片失败 Image generation failed", errors.New("image generator is not configured"))
		return
	}
	em.progress("Starting image generation...")

	images, err := s.images.GenerateImages(ctx, req.Message)
	if err != nil {
		em.fail("生成图片失败 Image generation failed", err)
		return
	}
	if len(images) == 0 {
		em.fail("生成图片失败 Image generation failed", apperrors.ErrImageGenerateFailed)
		return
	}

	em.progress(fmt.Sprintf("Uploading %d image(s)...", len(images)))
	urls := make([]string, 0, len(images))
	for _, img := range images {
		ext := filepath.Ext(img.Filename)
		if ext == "" {
			ext = ".png"
		}
		key, err := s.store.Put(ctx, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType, ext)
		if err != nil {
			em.fail("上传图片失败 Image upload failed", apperrors.Wrap(apperrors.CodeUploadFailed, apperrors.ErrUploadFailed.Message, err))
			return
		}
		url, err := s.store.PresignedURL(ctx, key, s.presignTTL)
		if err != nil {
			em.fail("上传图片失败 Image upload failed", apperrors.Wrap(apperrors.CodeUploadFailed, apperrors.ErrUploadFailed.Message, err))
			return
		}
		urls = append(urls, url)
	}

	var b strings.Builder
	b.WriteString("Here are your generated images:\n")
	for _, u := range urls {
		fmt.Fprintf(&b, "\n![generated image](%s)\n", u)
	}
	em.complete(b.String(), map[string]any{"images": urls})
}

func (s *ChatStreamer) handleChat(ctx context.Context, req ChatRequest, em *eventEmitter) {
	if s.chat == nil {
		em.fail("对话失败 Chat failed", errors.New("chat model is not configured"))
		return
	}
	full, err := s.chat.ChatCompletionStream(ctx, req.Message, func(delta string) error {
		if !em.delta(delta) {
			return errStreamClosed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errStreamClosed) {
			return
		}
		em.fail("对话失败 Chat failed", err)
		return
	}
	em.complete(full, nil)
}
