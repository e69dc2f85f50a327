package volcengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractContentShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantShape string
		wantText  string
	}{
		{
			name:      "chat completion",
			body:      `{"choices":[{"message":{"role":"assistant","content":"[{\"start_time\":\"00:01.000\",\"end_time\":\"00:03.000\",\"event\":\"goal\"}]"}}]}`,
			wantShape: "chat_completion",
			wantText:  `[{"start_time":"00:01.000","end_time":"00:03.000","event":"goal"}]`,
		},
		{
			name: "responses with reasoning first",
			body: `{"output":[
				{"type":"reasoning","summary":[{"type":"summary_text","text":"thinking"}],"content":[{"type":"output_text","text":"ignore me"}]},
				{"type":"message","role":"assistant","content":[{"type":"output_text","text":"[]"}]}
			]}`,
			wantShape: "responses",
			wantText:  "[]",
		},
		{
			name:      "responses nested message",
			body:      `{"output":[{"type":"other","message":{"role":"assistant","content":[{"text":"{\"clips\":[]}"}]}}]}`,
			wantShape: "responses",
			wantText:  `{"clips":[]}`,
		},
		{
			name:      "responses second item without role",
			body:      `{"output":[{"type":"web_search_call"},{"content":[{"text":"[1]"}]}]}`,
			wantShape: "responses",
			wantText:  "[1]",
		},
		{
			name:      "bare list",
			body:      ` [{"start_time":"00:01","end_time":"00:02"}]`,
			wantShape: "bare",
			wantText:  `[{"start_time":"00:01","end_time":"00:02"}]`,
		},
		{
			name:      "bare clips object",
			body:      `{"clips":[{"start_time":"00:01","end_time":"00:02"}]}`,
			wantShape: "bare",
			wantText:  `{"clips":[{"start_time":"00:01","end_time":"00:02"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, shape, ok := extractContent([]byte(tt.body))
			require.True(t, ok)
			assert.Equal(t, tt.wantShape, shape)
			assert.Equal(t, tt.wantText, content)
		})
	}
}

func TestExtractContentUnknownShape(t *testing.T) {
	for _, body := range []string{``, `{"id":"resp_1","status":"failed"}`, `{"choices":[]}`, `"just a string"`} {
		_, _, ok := extractContent([]byte(body))
		assert.False(t, ok, "body %q", body)
	}
}

func TestParseClipContent(t *testing.T) {
	content := "```json\n" + `[
		{"start_time":"00:05.000","end_time":"00:12.500","event":"进球"},
		{"start_time":"01:00","end_time":"00:50","event":"reversed"},
		{"start_time":"garbage","end_time":"also garbage","event":"unknown"},
		{"start_time":30,"end_time":42.5,"event":"numeric seconds"},
		{"start_time":"1:00:00.000","end_time":"1:00:04.000","event":"late"}
	]` + "\n```"

	clips, err := ParseClipContent(content)
	require.NoError(t, err)
	require.Len(t, clips, 3)

	assert.Equal(t, "进球", clips[0].Event)
	assert.InDelta(t, 5.0, clips[0].Start, 1e-9)
	assert.InDelta(t, 12.5, clips[0].End, 1e-9)
	assert.InDelta(t, 7.5, clips[0].Duration, 1e-9)

	assert.Equal(t, "numeric seconds", clips[1].Event)
	assert.InDelta(t, 12.5, clips[1].Duration, 1e-9)

	assert.InDelta(t, 3600.0, clips[2].Start, 1e-9)
	assert.InDelta(t, 4.0, clips[2].Duration, 1e-9)
}

func TestParseClipContentClipsObject(t *testing.T) {
	clips, err := ParseClipContent(`{"clips":[{"start_time":"00:01.000","end_time":"00:02.000","event":"a","duration":999}]}`)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.InDelta(t, 1.0, clips[0].Duration, 1e-9, "duration is recomputed, not trusted")
}

func TestParseClipContentProseIsEmpty(t *testing.T) {
	clips, err := ParseClipContent("抱歉，视频中没有符合要求的片段。")
	require.NoError(t, err)
	assert.NotNil(t, clips)
	assert.Empty(t, clips)
}

func TestParseClipContentUnparsableIsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "truncated array", content: `[{"start_time": "00:01", "end_time": ]`},
		{name: "truncated object", content: `{"clips": [{"start_time": "00:01"`},
		{name: "bracketed prose", content: "No highlights were found [the video is static]."},
		{name: "braced prose", content: "Nothing matched {static scene}, sorry."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clips, err := ParseClipContent(tt.content)
			require.NoError(t, err)
			assert.NotNil(t, clips)
			assert.Empty(t, clips)
		})
	}
}
