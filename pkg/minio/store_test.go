package minio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	path   string
	query  url.Values
	body   string
	ctype  string
}

type fakeS3 struct {
	mu           sync.Mutex
	calls        []recordedCall
	bucketExists bool
}

func (f *fakeS3) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.Query(),
		body:   string(body),
		ctype:  r.Header.Get("Content-Type"),
	})
	exists := f.bucketExists
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodHead && !exists:
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}
}

func newTestStore(t *testing.T, fake *fakeS3) *Store {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	store, err := NewStore(Config{
		Endpoint:        srv.URL,
		AccessKeyId:     "minioadmin",
		AccessKeySecret: "minioadmin",
		Bucket:          "highlights",
		ForcePathStyle:  true,
		ExpireDays:      1,
	})
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }
	return store
}

func TestPut(t *testing.T) {
	fake := &fakeS3{}
	store := newTestStore(t, fake)

	key, err := store.Put(context.Background(), strings.NewReader("video-bytes"), 11, "video/mp4", ".mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "20240309/"))
	assert.True(t, strings.HasSuffix(key, ".mp4"))

	require.Len(t, fake.calls, 1)
	assert.Equal(t, http.MethodPut, fake.calls[0].method)
	assert.Equal(t, "/highlights/"+key, fake.calls[0].path)
	assert.Equal(t, "video-bytes", fake.calls[0].body)
	assert.Equal(t, "video/mp4", fake.calls[0].ctype)
}

func TestPresignedURL(t *testing.T) {
	store := newTestStore(t, &fakeS3{})

	raw, err := store.PresignedURL(context.Background(), "20240309/a.mp4", 24*time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/highlights/20240309/a.mp4", u.Path)
	assert.Equal(t, "86400", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestDelete(t *testing.T) {
	fake := &fakeS3{}
	store := newTestStore(t, fake)

	require.NoError(t, store.Delete(context.Background(), "20240309/a.mp4"))
	require.Len(t, fake.calls, 1)
	assert.Equal(t, http.MethodDelete, fake.calls[0].method)
	assert.Equal(t, "/highlights/20240309/a.mp4", fake.calls[0].path)
}

func TestEnsureBucketCreatesMissingBucket(t *testing.T) {
	fake := &fakeS3{}
	store := newTestStore(t, fake)

	require.NoError(t, store.EnsureBucket(context.Background()))
	require.Len(t, fake.calls, 3)
	assert.Equal(t, http.MethodHead, fake.calls[0].method)
	assert.Equal(t, http.MethodPut, fake.calls[1].method)
	assert.Equal(t, "/highlights", fake.calls[1].path)
	assert.Equal(t, http.MethodPut, fake.calls[2].method)
	_, hasLifecycle := fake.calls[2].query["lifecycle"]
	assert.True(t, hasLifecycle)
	assert.Contains(t, fake.calls[2].body, "<Days>1</Days>")
}

func TestEnsureBucketExisting(t *testing.T) {
	fake := &fakeS3{bucketExists: true}
	store := newTestStore(t, fake)
	store.cfg.ExpireDays = 0

	require.NoError(t, store.EnsureBucket(context.Background()))
	require.Len(t, fake.calls, 1)
	assert.Equal(t, http.MethodHead, fake.calls[0].method)
}
