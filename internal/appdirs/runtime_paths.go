package appdirs

import (
	"path/filepath"
	"strings"
)

// Directory names under the output and cache roots. The download handler
// exposes PublishedDirName and UploadDirName as URL aliases.
const (
	ClipsDirName     = "clips"
	MergedDirName    = "outputs"
	UploadDirName    = "uploads"
	PublishedDirName = "published"
	TempDirName      = "tmp"
	dbFileName       = "highlight.db"
)

// ClipsDirFor holds intermediate extractions; everything in it is owned by a
// running pipeline invocation.
func ClipsDirFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), ClipsDirName)
}

func MergedDirFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), MergedDirName)
}

func UploadDirFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), UploadDirName)
}

// PublishedDirFor is the bucket root used by the local artifact store.
func PublishedDirFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), PublishedDirName)
}

func TempDirFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), TempDirName)
}

func DBPathFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), dbFileName)
}

func normalizeOutputDir(outputDir string) string {
	cleaned := strings.TrimSpace(outputDir)
	if cleaned == "" {
		return "."
	}
	return filepath.Clean(cleaned)
}

func normalizeCacheDir(cacheDir string) string {
	cleaned := strings.TrimSpace(cacheDir)
	if cleaned == "" {
		return "cache"
	}
	return filepath.Clean(cleaned)
}
