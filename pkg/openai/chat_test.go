package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "highlight-ai/pkg/errors"
)

type chatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, handler func(w http.ResponseWriter, req chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		var req chatRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatCompletion(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, req chatRequest) {
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hi", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`))
	})

	c := NewClient(srv.URL+"/v1", "sk-test", "test-model", "")
	got, err := c.ChatCompletion(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", got)
}

func TestChatCompletionServerError(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, _ chatRequest) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	c := NewClient(srv.URL+"/v1", "sk-test", "test-model", "")
	_, err := c.ChatCompletion(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeChatFailed))
}

func writeStream(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, d := range deltas {
		chunk := fmt.Sprintf(`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":%q}}]}`, d)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestChatCompletionStream(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, req chatRequest) {
		assert.True(t, req.Stream)
		writeStream(w, "Hel", "", "lo", "!")
	})

	c := NewClient(srv.URL+"/v1", "sk-test", "test-model", "")
	var deltas []string
	full, err := c.ChatCompletionStream(context.Background(), "hi", func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", full)
	assert.Equal(t, []string{"Hel", "lo", "!"}, deltas)
}

func TestChatCompletionStreamStopsOnCallbackError(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, _ chatRequest) {
		writeStream(w, "a", "b", "c")
	})

	stop := errors.New("client gone")
	c := NewClient(srv.URL+"/v1", "sk-test", "test-model", "")
	calls := 0
	full, err := c.ChatCompletionStream(context.Background(), "hi", func(string) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, "ab", full)
	assert.Equal(t, 2, calls)
}
