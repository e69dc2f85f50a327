package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"github.com/texttheater/golang-levenshtein/levenshtein"
	"go.uber.org/zap"

	"highlight-ai/internal/types"
	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
	"highlight-ai/pkg/util"
)

// generationKeywords gate the model call. Text without any of them is chat.
var generationKeywords = []string{
	"draw", "paint", "generate image", "create image", "make a picture", "picture", "image",
	"video", "movie", "generate video", "create video", "clip", "highlight",
	"画", "绘", "图片", "做图", "视频", "生成视频", "剪辑", "集锦",
}

const maxLabelDistance = 3

// IntentRouter decides which pipeline handles a chat turn. It never fails;
// every problem degrades to chat.
type IntentRouter struct {
	classifier types.IntentClassifier
}

func NewIntentRouter(classifier types.IntentClassifier) *IntentRouter {
	return &IntentRouter{classifier: classifier}
}

// MentionsGeneration reports whether text contains a generation keyword.
func MentionsGeneration(text string) bool {
	lower := strings.ToLower(text)
	return lo.ContainsBy(generationKeywords, func(k string) bool {
		return strings.Contains(lower, k)
	})
}

func (r *IntentRouter) Route(ctx context.Context, text string) types.Intent {
	if strings.TrimSpace(text) == "" || !MentionsGeneration(text) {
		return types.Intent{Category: types.IntentChat, Confidence: 1.0}
	}
	if r.classifier == nil {
		return types.Intent{Category: types.IntentChat, Confidence: 0.0}
	}

	intent, err := r.classify(ctx, text)
	if err != nil {
		log.GetLogger().Warn("意图识别失败，按聊天处理 intent classification failed, falling back to chat",
			zap.String("text", text), zap.Error(err))
		return types.Intent{Category: types.IntentChat, Confidence: 0.0}
	}
	log.GetLogger().Info("意图识别结果 intent classified",
		zap.String("intent", string(intent.Category)), zap.Float64("confidence", intent.Confidence))
	return intent
}

func (r *IntentRouter) classify(ctx context.Context, text string) (types.Intent, error) {
	raw, err := r.classifier.Classify(ctx, text)
	if err != nil {
		return types.Intent{}, apperrors.Wrap(apperrors.CodeClassificationFailed, apperrors.ErrClassificationFailed.Message, err)
	}
	category, ok := NormalizeIntentLabel(string(raw.Category))
	if !ok {
		return types.Intent{}, apperrors.WrapWithDetail(apperrors.CodeClassificationFailed, apperrors.ErrClassificationFailed.Message,
			fmt.Sprintf("unknown label %q", raw.Category), nil)
	}
	return types.Intent{Category: category, Confidence: clampConfidence(raw.Confidence)}, nil
}

// NormalizeIntentLabel maps a free-form label onto a known category.
func NormalizeIntentLabel(label string) (types.IntentCategory, bool) {
	norm := strings.ToLower(strings.TrimSpace(label))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	if norm == "" {
		return "", false
	}
	for _, c := range types.IntentCategories {
		if norm == string(c) {
			return c, true
		}
	}
	switch {
	case strings.Contains(norm, "image"):
		return types.IntentImageGeneration, true
	case strings.Contains(norm, "video"):
		return types.IntentVideoGeneration, true
	}

	best, bestDist := types.IntentCategory(""), math.MaxInt
	for _, c := range types.IntentCategories {
		d := levenshtein.DistanceForStrings([]rune(norm), []rune(string(c)), levenshtein.DefaultOptions)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist > maxLabelDistance {
		return "", false
	}
	return best, true
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// LLMIntentClassifier asks the chat model for a strict-JSON intent.
type LLMIntentClassifier struct {
	completer types.ChatCompleter
}

func NewLLMIntentClassifier(completer types.ChatCompleter) *LLMIntentClassifier {
	return &LLMIntentClassifier{completer: completer}
}

func (c *LLMIntentClassifier) Classify(ctx context.Context, text string) (types.Intent, error) {
	reply, err := c.completer.ChatCompletion(ctx, fmt.Sprintf(types.IntentClassifyPrompt, text))
	if err != nil {
		return types.Intent{}, err
	}

	var parsed struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(util.ExtractJsonFromText(reply)), &parsed); err != nil {
		return types.Intent{}, fmt.Errorf("parse intent reply %q: %w", reply, err)
	}
	return types.Intent{Category: types.IntentCategory(parsed.Intent), Confidence: parsed.Confidence}, nil
}
