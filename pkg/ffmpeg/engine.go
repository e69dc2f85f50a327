// Package ffmpeg drives ffprobe and ffmpeg as child processes for duration
// probing, range extraction and concatenation.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

const stderrTailBytes = 800

type Options struct {
	FfmpegPath  string
	FfprobePath string
	FrameRate   int
	VideoCodec  string
	AudioCodec  string
	// ManifestDir holds concat manifests; defaults to the output's directory.
	ManifestDir string
}

type Engine struct {
	opts   Options
	runner Runner
}

func NewEngine(opts Options, runner Runner) *Engine {
	if strings.TrimSpace(opts.FfmpegPath) == "" {
		opts.FfmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(opts.FfprobePath) == "" {
		opts.FfprobePath = "ffprobe"
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.VideoCodec == "" {
		opts.VideoCodec = "libx264"
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = "aac"
	}
	if runner == nil {
		runner = NewCommandRunner()
	}
	return &Engine{opts: opts, runner: runner}
}

// ProbeDuration returns the container duration in seconds, or 0 when it
// cannot be determined. Failures are logged, never returned.
func (e *Engine) ProbeDuration(ctx context.Context, ref string) float64 {
	stdout, stderr, err := e.runner.Run(ctx, e.opts.FfprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		ref,
	)
	if err != nil {
		log.GetLogger().Warn("ffprobe failed, duration unknown",
			zap.String("ref", ref),
			zap.String("stderr", tail(stderr)),
			zap.Error(err))
		return 0
	}

	raw := strings.TrimSpace(string(stdout))
	if raw == "" || strings.EqualFold(raw, "N/A") {
		return 0
	}
	// some containers print one value per line
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		log.GetLogger().Warn("ffprobe returned unparsable duration", zap.String("ref", ref), zap.String("output", raw))
		return 0
	}
	return d
}

// ExtractRange re-encodes [start, start+duration) of ref into outPath at a
// fixed frame rate so later concatenation sees uniform streams.
func (e *Engine) ExtractRange(ctx context.Context, ref string, start, duration float64, outPath string) error {
	if duration <= 0 {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "片段时长无效 Invalid clip duration",
			fmt.Sprintf("start=%.3f duration=%.3f", start, duration), nil)
	}
	if start < 0 {
		start = 0
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "创建输出目录失败 Failed to create output dir", err)
	}

	args := []string{
		"-y",
		"-ss", formatSeconds(start),
		"-i", ref,
		"-t", formatSeconds(duration),
		"-avoid_negative_ts", "make_zero",
		"-r", strconv.Itoa(e.opts.FrameRate),
		"-c:v", e.opts.VideoCodec,
		"-c:a", e.opts.AudioCodec,
		"-strict", "experimental",
		outPath,
	}
	_, stderr, err := e.runner.Run(ctx, e.opts.FfmpegPath, args...)
	if err != nil {
		return classifyRunError(ctx, e.opts.FfmpegPath, "extract", err, stderr)
	}
	return nil
}

// Concatenate merges refs in order into outPath through a concat manifest.
// The manifest is removed on every exit path.
func (e *Engine) Concatenate(ctx context.Context, refs []string, outPath string) error {
	if len(refs) == 0 {
		return apperrors.New(apperrors.CodeMergeFailed, "没有可合并的片段 No clips to merge")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "创建输出目录失败 Failed to create output dir", err)
	}

	manifestDir := e.opts.ManifestDir
	if manifestDir == "" {
		manifestDir = filepath.Dir(outPath)
	}
	manifestPath := filepath.Join(manifestDir, fmt.Sprintf("concat_%s.txt", uuid.New().String()))
	if err := writeManifest(manifestPath, refs); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "写入合并清单失败 Failed to write concat manifest", err)
	}
	defer func() {
		if err := os.Remove(manifestPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.GetLogger().Warn("failed to remove concat manifest", zap.String("path", manifestPath), zap.Error(err))
		}
	}()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c:v", e.opts.VideoCodec,
		"-c:a", e.opts.AudioCodec,
		"-strict", "experimental",
		outPath,
	}
	_, stderr, err := e.runner.Run(ctx, e.opts.FfmpegPath, args...)
	if err != nil {
		return classifyRunError(ctx, e.opts.FfmpegPath, "concat", err, stderr)
	}
	return nil
}

func writeManifest(path string, refs []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	for _, ref := range refs {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return err
		}
		b.WriteString("file '")
		b.WriteString(escapeManifestPath(abs))
		b.WriteString("'\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// escapeManifestPath closes the quote, emits an escaped quote and reopens it,
// which is how the concat demuxer expects a literal '.
func escapeManifestPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

func classifyRunError(ctx context.Context, tool, op string, err error, stderr []byte) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.Wrap(apperrors.CodeMediaEngine, fmt.Sprintf("ffmpeg %s 已取消 ffmpeg %s canceled", op, op), ctxErr)
	}
	if isToolMissing(err) {
		return apperrors.WrapWithDetail(apperrors.CodeMediaToolMissing, apperrors.ErrMediaToolMissing.Message, tool, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return apperrors.WrapWithDetail(apperrors.CodeMediaEngine,
			fmt.Sprintf("ffmpeg %s 失败 ffmpeg %s exited with code %d", op, op, exitErr.ExitCode()),
			tail(stderr), err)
	}
	return apperrors.WrapWithDetail(apperrors.CodeMediaEngine,
		fmt.Sprintf("ffmpeg %s 启动失败 ffmpeg %s could not start", op, op), tail(stderr), err)
}

// isToolMissing matches PATH lookup failures and absolute paths that do not
// exist; both unwrap to one of these sentinels.
func isToolMissing(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > stderrTailBytes {
		s = s[len(s)-stderrTailBytes:]
	}
	return s
}
