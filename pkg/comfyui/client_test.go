package comfyui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "highlight-ai/pkg/errors"
)

type fakeComfy struct {
	t         *testing.T
	queued    chan map[string]any
	freed     atomic.Bool
	history   string
	finish    bool
	binary    []byte
	clientIds chan string
}

func newFakeComfy(t *testing.T) *fakeComfy {
	return &fakeComfy{
		t:         t,
		queued:    make(chan map[string]any, 1),
		clientIds: make(chan string, 1),
		finish:    true,
		history:   `{"p-1":{"outputs":{"9":{"images":[{"filename":"Flux2_00001_.png","subfolder":"","type":"output"}]}}}}`,
	}
}

func (f *fakeComfy) start() *httptest.Server {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/free", func(w http.ResponseWriter, r *http.Request) {
		f.freed.Store(true)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		f.clientIds <- r.URL.Query().Get("clientId")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		select {
		case <-f.queued:
		case <-time.After(5 * time.Second):
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"status","data":{"status":{}}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"executing","data":{"node":"3","prompt_id":"other"}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"executing","data":{"node":"9","prompt_id":"p-1"}}`))
		if f.binary != nil {
			_ = conn.WriteMessage(websocket.BinaryMessage, f.binary)
		}
		if f.finish {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"executing","data":{"node":null,"prompt_id":"p-1"}}`))
		}
		_, _, _ = conn.ReadMessage()
	})
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.queued <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prompt_id":"p-1","number":1}`))
	})
	mux.HandleFunc("/history/p-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.history))
	})
	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Flux2_00001_.png", r.URL.Query().Get("filename"))
		assert.Equal(f.t, "output", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	})
	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		ServerAddress: strings.TrimPrefix(srv.URL, "http://"),
		Timeout:       5 * time.Second,
	})
	require.NoError(t, err)
	c.seed = func() int64 { return 42 }
	return c
}

func TestGenerateImagesFromHistory(t *testing.T) {
	fake := newFakeComfy(t)
	srv := fake.start()
	c := newTestClient(t, srv)

	images, err := c.GenerateImages(context.Background(), `a "red" fox`)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "9_Flux2_00001_.png", images[0].Filename)
	assert.Equal(t, "image/png", images[0].ContentType)
	assert.Equal(t, []byte("png-bytes"), images[0].Data)
	assert.True(t, fake.freed.Load())
	assert.NotEmpty(t, <-fake.clientIds)
}

func TestGenerateImagesFallsBackToStreamedFrames(t *testing.T) {
	fake := newFakeComfy(t)
	fake.history = `{}`
	fake.binary = append([]byte{0, 0, 0, 1, 0, 0, 0, 2}, []byte("preview")...)
	srv := fake.start()
	c := newTestClient(t, srv)

	images, err := c.GenerateImages(context.Background(), "sunset")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "9_0.png", images[0].Filename)
	assert.Equal(t, []byte("preview"), images[0].Data)
}

func TestGenerateImagesTimesOut(t *testing.T) {
	fake := newFakeComfy(t)
	fake.finish = false
	srv := fake.start()
	c := newTestClient(t, srv)
	c.cfg.Timeout = 300 * time.Millisecond

	_, err := c.GenerateImages(context.Background(), "sunset")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeImageGenerateFailed))
}

func TestBuildPrompt(t *testing.T) {
	graph, err := buildPrompt(defaultWorkflow, "6", `say "hi"`, 7)
	require.NoError(t, err)

	inputs := graph["6"]["inputs"].(map[string]any)
	assert.Equal(t, `say "hi"`, inputs["text"])
	noise := graph["25"]["inputs"].(map[string]any)
	assert.Equal(t, int64(7), noise["noise_seed"])

	_, err = buildPrompt(defaultWorkflow, "999", "x", 1)
	assert.Error(t, err)
}
