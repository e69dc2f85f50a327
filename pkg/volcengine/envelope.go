package volcengine

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"highlight-ai/internal/types"
	"highlight-ai/log"
	"highlight-ai/pkg/timecode"
	"highlight-ai/pkg/util"
)

// envelopeParser extracts the model's text reply from one response shape.
type envelopeParser struct {
	name  string
	parse func(body []byte) (string, bool)
}

// Tried in order; the first shape that yields content wins.
var envelopeParsers = []envelopeParser{
	{name: "chat_completion", parse: chatCompletionContent},
	{name: "responses", parse: responsesContent},
	{name: "bare", parse: bareContent},
}

type chatCompletionEnvelope struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func chatCompletionContent(body []byte) (string, bool) {
	var env chatCompletionEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Choices) == 0 {
		return "", false
	}
	content := strings.TrimSpace(env.Choices[0].Message.Content)
	return content, content != ""
}

type responsesContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesOutputItem struct {
	Type    string                 `json:"type"`
	Role    string                 `json:"role"`
	Content []responsesContentPart `json:"content"`
	Message *struct {
		Role    string                 `json:"role"`
		Content []responsesContentPart `json:"content"`
	} `json:"message"`
}

type responsesEnvelope struct {
	Output []responsesOutputItem `json:"output"`
}

// responsesContent prefers the last assistant message; reasoning items and
// other non-message output only count when nothing else carries text.
func responsesContent(body []byte) (string, bool) {
	var env responsesEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Output) == 0 {
		return "", false
	}

	var assistantText, anyText string
	for _, item := range env.Output {
		role, parts := item.Role, item.Content
		if item.Message != nil {
			role, parts = item.Message.Role, item.Message.Content
		}
		text := joinParts(parts)
		if text == "" || item.Type == "reasoning" {
			continue
		}
		anyText = text
		if role == "assistant" || item.Type == "message" {
			assistantText = text
		}
	}
	if assistantText != "" {
		return assistantText, true
	}
	return anyText, anyText != ""
}

func joinParts(parts []responsesContentPart) string {
	var b strings.Builder
	for _, p := range parts {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// bareContent accepts a body that is itself the clip list or a {"clips": …}
// object.
func bareContent(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", false
	}
	if trimmed[0] == '[' {
		return string(trimmed), true
	}
	if trimmed[0] == '{' {
		var probe struct {
			Clips json.RawMessage `json:"clips"`
		}
		if json.Unmarshal(trimmed, &probe) == nil && len(probe.Clips) > 0 {
			return string(trimmed), true
		}
	}
	return "", false
}

// extractContent runs the parser chain. ok is false when no shape matched.
func extractContent(body []byte) (content, shape string, ok bool) {
	for _, p := range envelopeParsers {
		if content, ok := p.parse(body); ok {
			return content, p.name, true
		}
	}
	return "", "", false
}

// flexString accepts both JSON strings and numbers, since models sometimes
// emit seconds as bare numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type rawClip struct {
	StartTime flexString `json:"start_time"`
	EndTime   flexString `json:"end_time"`
	Event     string     `json:"event"`
}

// ParseClipContent converts the model's reply text into descriptors. Prose
// and unparsable JSON are an empty result, not an error. Durations are always
// recomputed from the parsed boundaries.
func ParseClipContent(content string) ([]types.ClipDescriptor, error) {
	cleaned := strings.TrimSpace(util.ExtractJsonFromText(content))
	if cleaned == "" || (cleaned[0] != '[' && cleaned[0] != '{') {
		return []types.ClipDescriptor{}, nil
	}

	var raws []rawClip
	if cleaned[0] == '[' {
		if err := json.Unmarshal([]byte(cleaned), &raws); err != nil {
			return unparsable(cleaned, err), nil
		}
	} else {
		var wrapped struct {
			Clips []rawClip `json:"clips"`
		}
		if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
			return unparsable(cleaned, err), nil
		}
		raws = wrapped.Clips
	}

	clips := make([]types.ClipDescriptor, 0, len(raws))
	for _, r := range raws {
		start := timecode.Parse(string(r.StartTime))
		end := timecode.Parse(string(r.EndTime))
		if end <= start {
			continue
		}
		clips = append(clips, types.ClipDescriptor{
			StartTime: string(r.StartTime),
			EndTime:   string(r.EndTime),
			Event:     r.Event,
			Start:     start,
			End:       end,
			Duration:  end - start,
		})
	}
	return clips, nil
}

func unparsable(content string, err error) []types.ClipDescriptor {
	log.GetLogger().Warn("volcengine: clip list could not be parsed, treating as no highlights",
		zap.String("content", truncate(content, 300)), zap.Error(err))
	return []types.ClipDescriptor{}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(" + strconv.Itoa(len(s)) + " bytes)"
}
