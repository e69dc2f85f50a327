package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"highlight-ai/internal/appcore"
	"highlight-ai/internal/types"
	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

const (
	DefaultHighlightPrompt = "Highlight interesting parts"
	defaultTargetDuration  = 60.0
	defaultPresignTTL      = 24 * time.Hour
)

// HighlightRequest 一次集锦生成请求
type HighlightRequest struct {
	Sources        []types.VideoSource
	Prompt         string
	TargetDuration float64
}

// PipelineOptions configures a HighlightPipeline. Zero values fall back to
// defaults.
type PipelineOptions struct {
	ClipsDir           string
	MergedDir          string
	TargetDuration     float64
	PresignTTL         time.Duration
	ExtractConcurrency int
	// NewRandom supplies the trim offset source for each run.
	NewRandom func() types.RandomSource
}

// HighlightPipeline turns videos plus a prompt into one published highlight
// reel. It holds no per-request state and is safe for concurrent use.
type HighlightPipeline struct {
	analyzer types.VideoAnalyzer
	media    types.MediaEngine
	store    types.ArtifactStore
	opts     PipelineOptions
}

func NewHighlightPipeline(analyzer types.VideoAnalyzer, media types.MediaEngine, store types.ArtifactStore, opts PipelineOptions) *HighlightPipeline {
	if opts.TargetDuration <= 0 {
		opts.TargetDuration = defaultTargetDuration
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = defaultPresignTTL
	}
	if opts.ExtractConcurrency <= 0 {
		opts.ExtractConcurrency = 1
	}
	if opts.NewRandom == nil {
		opts.NewRandom = newTimeSeededRandom
	}
	if opts.MergedDir == "" {
		opts.MergedDir = opts.ClipsDir
	}
	return &HighlightPipeline{analyzer: analyzer, media: media, store: store, opts: opts}
}

// highlightRun is the state owned by one Run call.
type highlightRun struct {
	req      HighlightRequest
	sink     appcore.ProgressSink
	ledger   artifactLedger
	failures []types.SourceFailure
	found    int
}

func (r *highlightRun) emit(stage appcore.Stage, source string, current, total int, msg string) {
	r.sink.Emit(appcore.Progress{Stage: stage, Source: source, Current: current, Total: total, Message: msg})
}

func (r *highlightRun) fail(ref, reason string) {
	r.failures = append(r.failures, types.SourceFailure{Ref: ref, Reason: reason})
}

// Run executes analyze → extract → trim → merge → publish. Intermediate
// files are removed on every exit path, including cancellation.
func (p *HighlightPipeline) Run(ctx context.Context, req HighlightRequest, sink appcore.ProgressSink) (result types.PipelineResult, err error) {
	req.Sources = lo.Filter(req.Sources, func(s types.VideoSource, _ int) bool {
		return strings.TrimSpace(s.Ref) != ""
	})
	if len(req.Sources) == 0 {
		return result, apperrors.ErrNoVideoSource
	}
	if strings.TrimSpace(req.Prompt) == "" {
		req.Prompt = DefaultHighlightPrompt
	}
	if req.TargetDuration <= 0 {
		req.TargetDuration = p.opts.TargetDuration
	}

	run := &highlightRun{req: req, sink: sink}
	defer func() {
		run.emit(appcore.StageCleaningUp, "", 0, 0, fmt.Sprintf("removing %d intermediate files", run.ledger.Len()))
		if failed := run.ledger.Cleanup(); failed > 0 {
			log.GetLogger().Warn("部分中间文件未能清理 some intermediate files were not removed", zap.Int("failed", failed))
		}
		if err != nil {
			run.emit(appcore.StageFailed, "", 0, 0, apperrors.GetMessage(err))
			return
		}
		run.emit(appcore.StageSucceeded, "", 0, 0, result.PreviewURL)
	}()

	pool, err := p.collectClips(ctx, run)
	if err != nil {
		return result, err
	}
	if len(pool) == 0 {
		reasons := lo.Map(run.failures, func(f types.SourceFailure, _ int) string {
			return f.Ref + ": " + f.Reason
		})
		return result, apperrors.WrapWithDetail(apperrors.CodeNoClipsFound, apperrors.ErrNoClipsFound.Message,
			strings.Join(reasons, "; "), nil)
	}

	run.emit(appcore.StageTrimming, "", 0, len(pool), fmt.Sprintf("fitting %d clips into %.1fs", len(pool), req.TargetDuration))
	plan := PlanTrim(pool, req.TargetDuration, p.opts.NewRandom())
	final, err := ApplyTrim(ctx, p.media, plan, p.opts.ClipsDir, run.ledger.Track)
	if err != nil {
		return result, err
	}

	run.emit(appcore.StageMerging, "", 0, len(final), fmt.Sprintf("merging %d clips", len(final)))
	mergedPath := filepath.Join(p.opts.MergedDir, fmt.Sprintf("merged_%s.mp4", uuid.New().String()))
	run.ledger.Track(mergedPath)
	paths := lo.Map(final, func(c types.ExtractedClip, _ int) string { return c.Path })
	if err = p.media.Concatenate(ctx, paths, mergedPath); err != nil {
		if apperrors.Is(err, apperrors.CodeMediaToolMissing) || errors.Is(err, context.Canceled) {
			return result, err
		}
		return result, apperrors.Wrap(apperrors.CodeMergeFailed, apperrors.ErrMergeFailed.Message, err)
	}

	run.emit(appcore.StagePublishing, "", 0, 0, "uploading highlight video")
	key, url, err := p.publish(ctx, mergedPath)
	if err != nil {
		return result, err
	}

	result = types.PipelineResult{
		Sources:        lo.Map(req.Sources, func(s types.VideoSource, _ int) string { return s.Ref }),
		FailedSources:  run.failures,
		ObjectKey:      key,
		OutputName:     filepath.Base(mergedPath),
		PreviewURL:     url,
		DownloadURL:    url,
		ClipsFound:     run.found,
		ClipsUsed:      len(final),
		OutputDuration: plan.PlannedDuration(),
	}
	log.GetLogger().Info("集锦生成完成 highlight published",
		zap.String("key", key),
		zap.Int("clips_found", result.ClipsFound),
		zap.Int("clips_used", result.ClipsUsed),
		zap.Int("failed_sources", len(run.failures)),
		zap.Float64("duration", result.OutputDuration))
	return result, nil
}

// collectClips analyzes and extracts every source in order. Per-source
// failures are recorded and skipped; a missing media tool or cancellation
// aborts the whole run.
func (p *HighlightPipeline) collectClips(ctx context.Context, run *highlightRun) ([]types.ExtractedClip, error) {
	var pool []types.ExtractedClip
	total := len(run.req.Sources)

	for i, source := range run.req.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		run.emit(appcore.StageAnalyzing, source.Ref, i+1, total, "analyzing video")
		descriptors, err := p.analyzer.AnalyzeVideo(ctx, source, run.req.Prompt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.GetLogger().Error("视频分析失败，跳过该视频 analysis failed, skipping source",
				zap.String("source", source.Ref), zap.Error(err))
			run.fail(source.Ref, apperrors.GetMessage(err))
			continue
		}
		if len(descriptors) == 0 {
			log.GetLogger().Warn("未找到符合要求的片段 no clips in source", zap.String("source", source.Ref))
			run.fail(source.Ref, "no matching clips")
			continue
		}
		run.found += len(descriptors)

		run.emit(appcore.StageExtracting, source.Ref, i+1, total, fmt.Sprintf("extracting %d clips", len(descriptors)))
		clips, err := p.extractClips(ctx, run, source, descriptors)
		if err != nil {
			return nil, err
		}
		if len(clips) == 0 {
			run.fail(source.Ref, "all clip extractions failed")
			continue
		}
		pool = append(pool, clips...)
	}
	return pool, nil
}

func (p *HighlightPipeline) extractClips(ctx context.Context, run *highlightRun, source types.VideoSource, descriptors []types.ClipDescriptor) ([]types.ExtractedClip, error) {
	slots := make([]*types.ExtractedClip, len(descriptors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.ExtractConcurrency)

	var mu sync.Mutex
	skipped := 0
	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			outPath := filepath.Join(p.opts.ClipsDir, fmt.Sprintf("clip_%s.mp4", uuid.New().String()))
			run.ledger.Track(outPath)
			if err := p.media.ExtractRange(gctx, source.Ref, d.Start, d.Duration, outPath); err != nil {
				if apperrors.Is(err, apperrors.CodeMediaToolMissing) {
					return err
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.GetLogger().Warn("片段提取失败，跳过 clip extraction failed, skipping",
					zap.String("source", source.Ref),
					zap.String("start", d.StartTime),
					zap.Error(err))
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}

			actual := p.media.ProbeDuration(gctx, outPath)
			if actual <= 0 {
				actual = d.Duration
			}
			slots[i] = &types.ExtractedClip{Descriptor: d, SourceRef: source.Ref, Path: outPath, Duration: actual}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.GetLogger().Info("部分片段提取失败 some clips skipped", zap.String("source", source.Ref), zap.Int("skipped", skipped))
	}

	clips := make([]types.ExtractedClip, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			clips = append(clips, *c)
		}
	}
	return clips, nil
}

func (p *HighlightPipeline) publish(ctx context.Context, path string) (string, string, error) {
	key, err := p.putFile(ctx, path, "video/mp4")
	if err != nil {
		return "", "", err
	}
	url, err := p.store.PresignedURL(ctx, key, p.opts.PresignTTL)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.CodePublishFailed, apperrors.ErrPublishFailed.Message, err)
	}
	return key, url, nil
}

func (p *HighlightPipeline) putFile(ctx context.Context, path, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodePublishFailed, apperrors.ErrPublishFailed.Message, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodePublishFailed, apperrors.ErrPublishFailed.Message, err)
	}
	key, err := p.store.Put(ctx, f, info.Size(), contentType, filepath.Ext(path))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodePublishFailed, apperrors.ErrPublishFailed.Message, err)
	}
	return key, nil
}

// UploadVideo stores an uploaded video and returns its key and a presigned
// URL usable as a pipeline source.
func (p *HighlightPipeline) UploadVideo(ctx context.Context, r io.Reader, size int64, filename string, sink appcore.ProgressSink) (string, string, error) {
	sink.Emit(appcore.Progress{Stage: appcore.StageUploading, Source: filename, Message: "uploading video"})

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".mp4"
	}
	key, err := p.store.Put(ctx, r, size, contentTypeForExt(ext), ext)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.CodeUploadFailed, apperrors.ErrUploadFailed.Message, err)
	}
	url, err := p.store.PresignedURL(ctx, key, p.opts.PresignTTL)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.CodeUploadFailed, apperrors.ErrUploadFailed.Message, err)
	}
	log.GetLogger().Info("视频上传成功 video uploaded", zap.String("file", filename), zap.String("key", key))
	return key, url, nil
}

// AutoGenerate uploads one video and runs the pipeline on its URL.
func (p *HighlightPipeline) AutoGenerate(ctx context.Context, r io.Reader, size int64, filename, prompt string, target float64, sink appcore.ProgressSink) (types.PipelineResult, error) {
	_, url, err := p.UploadVideo(ctx, r, size, filename, sink)
	if err != nil {
		return types.PipelineResult{}, err
	}
	return p.Run(ctx, HighlightRequest{
		Sources:        []types.VideoSource{{Ref: url, Size: size}},
		Prompt:         prompt,
		TargetDuration: target,
	}, sink)
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
