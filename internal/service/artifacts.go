package service

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"highlight-ai/log"
)

// artifactLedger records every intermediate file one pipeline call creates
// so they can be removed on every exit path. Safe for concurrent Track.
type artifactLedger struct {
	mu    sync.Mutex
	paths []string
}

func (l *artifactLedger) Track(path string) {
	if path == "" {
		return
	}
	l.mu.Lock()
	l.paths = append(l.paths, path)
	l.mu.Unlock()
}

func (l *artifactLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}

// Cleanup removes all tracked files. Missing files are not errors; other
// failures are logged and reported as a count.
func (l *artifactLedger) Cleanup() int {
	l.mu.Lock()
	paths := l.paths
	l.paths = nil
	l.mu.Unlock()

	failed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failed++
			log.GetLogger().Warn("清理中间文件失败 failed to remove intermediate file",
				zap.String("path", p), zap.Error(err))
		}
	}
	return failed
}
