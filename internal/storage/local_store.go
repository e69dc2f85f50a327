package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublishedRoute is where the HTTP layer serves LocalStore objects.
const PublishedRoute = "/api/file/published/"

var ErrInvalidKey = errors.New("invalid object key")

// LocalStore keeps artifacts on disk for single-machine deployments and
// hands out expiring links served by this process.
type LocalStore struct {
	dir     string
	baseURL string
	now     func() time.Time
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (s *LocalStore) Put(_ context.Context, r io.Reader, _ int64, _ string, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create published dir: %w", err)
	}

	key := uuid.New().String() + ext
	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return key, nil
}

func (s *LocalStore) PresignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}
	expires := s.now().Add(ttl).Unix()
	return fmt.Sprintf("%s%s%s?expires=%d", s.baseURL, PublishedRoute, url.PathEscape(key), expires), nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Resolve maps a served key and its expires parameter to a file path.
func (s *LocalStore) Resolve(key, expires string) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}
	if expires != "" {
		ts, err := strconv.ParseInt(expires, 10, 64)
		if err != nil || s.now().Unix() > ts {
			return "", fs.ErrNotExist
		}
	}
	path := filepath.Join(s.dir, key)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func validKey(key string) bool {
	return key != "" && key != "." && key != ".." &&
		!strings.ContainsAny(key, `/\`) && filepath.Base(key) == key
}
