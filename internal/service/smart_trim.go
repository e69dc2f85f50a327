package service

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"highlight-ai/internal/types"
	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

// MinClipDuration is the floor a trimmed clip never drops below.
const MinClipDuration = 0.5

// NewRandomSource returns a seeded RandomSource. Tests pass a fixed seed.
func NewRandomSource(seed int64) types.RandomSource {
	return rand.New(rand.NewSource(seed))
}

func newTimeSeededRandom() types.RandomSource {
	return NewRandomSource(time.Now().UnixNano())
}

// PlanTrim shrinks clips proportionally so their total fits target.
// Clips that would fall under MinClipDuration are pinned to the floor and
// the remaining excess is spread over the others, so unlike a plain
// per-clip clamp of the proportional share the floor never pushes the total
// past target. A clip already at or
// below the floor is left as is. When every clip is pinned the plan can
// exceed target.
func PlanTrim(clips []types.ExtractedClip, target float64, rng types.RandomSource) types.TrimPlan {
	plan := types.TrimPlan{
		Entries: make([]types.TrimEntry, len(clips)),
		Target:  target,
	}
	for i, clip := range clips {
		plan.Total += clip.Duration
		plan.Entries[i] = types.TrimEntry{
			Clip:             clip,
			OriginalDuration: clip.Duration,
			TrimmedDuration:  clip.Duration,
		}
	}
	if plan.Total <= target {
		return plan
	}
	plan.Trimmed = true
	if rng == nil {
		rng = newTimeSeededRandom()
	}

	active := make([]int, 0, len(clips))
	for i, clip := range clips {
		if clip.Duration > MinClipDuration {
			active = append(active, i)
		}
	}
	excess := plan.Total - target

	// Pin clips that hit the floor until the ratio stabilises.
	var ratio float64
	for len(active) > 0 {
		var activeTotal float64
		for _, i := range active {
			activeTotal += clips[i].Duration
		}
		ratio = excess / activeTotal

		remaining := active[:0:0]
		for _, i := range active {
			d := clips[i].Duration
			if d-d*ratio < MinClipDuration {
				plan.Entries[i].TrimmedDuration = MinClipDuration
				excess -= d - MinClipDuration
				continue
			}
			remaining = append(remaining, i)
		}
		if len(remaining) == len(active) {
			break
		}
		active = remaining
	}

	for _, i := range active {
		trimAmount := clips[i].Duration * ratio
		plan.Entries[i].TrimmedDuration = clips[i].Duration - trimAmount
		plan.Entries[i].TrimStart = rng.Float64() * trimAmount
	}
	return plan
}

// ApplyTrim re-extracts every shortened entry of plan into outDir. Entries
// that keep their original length are reused. The returned slice preserves
// plan order. track is called with each output path before the engine runs.
func ApplyTrim(ctx context.Context, engine types.MediaEngine, plan types.TrimPlan, outDir string, track func(string)) ([]types.ExtractedClip, error) {
	out := make([]types.ExtractedClip, 0, len(plan.Entries))
	for i, entry := range plan.Entries {
		if !plan.Trimmed || entry.TrimmedDuration >= entry.OriginalDuration {
			out = append(out, entry.Clip)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outPath := filepath.Join(outDir, fmt.Sprintf("trimmed_%s.mp4", uuid.New().String()))
		if track != nil {
			track(outPath)
		}
		if err := engine.ExtractRange(ctx, entry.Clip.Path, entry.TrimStart, entry.TrimmedDuration, outPath); err != nil {
			log.GetLogger().Error("片段裁剪失败 trim extraction failed",
				zap.Int("index", i),
				zap.String("clip", entry.Clip.Path),
				zap.Error(err))
			if apperrors.GetCode(err) != apperrors.CodeUnknown {
				return nil, err
			}
			return nil, apperrors.Wrap(apperrors.CodeClipExtractFailed, "片段裁剪失败 Trim extraction failed", err)
		}

		trimmed := entry.Clip
		trimmed.Path = outPath
		trimmed.Duration = entry.TrimmedDuration
		out = append(out, trimmed)
	}
	return out, nil
}
