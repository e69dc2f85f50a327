package intentsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highlight-ai/internal/types"
)

func TestClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "画一只猫", body["text"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"intent":"image_generation","confidence":0.91}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL+"/predict", time.Second).Classify(context.Background(), "画一只猫")
	require.NoError(t, err)
	assert.Equal(t, types.IntentImageGeneration, got.Category)
	assert.InDelta(t, 0.91, got.Confidence, 1e-9)
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusServiceUnavailable, body: `{"detail":"loading model"}`},
		{name: "missing intent", status: http.StatusOK, body: `{"confidence":0.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Classify(context.Background(), "make a video")
			assert.Error(t, err)
		})
	}
}
