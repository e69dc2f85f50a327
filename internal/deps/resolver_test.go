package deps

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"highlight-ai/internal/storage"
)

func notFoundErr(command string) error {
	return &exec.Error{Name: command, Err: exec.ErrNotFound}
}

func TestPathResolverResolvePrefersStoragePath(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "ffmpeg-custom")
	if err := os.WriteFile(binPath, []byte("ffmpeg"), 0o755); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}

	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}

	state := resolver.Resolve(DependencySpec{
		Name:        "ffmpeg",
		Command:     "ffmpeg",
		StoragePath: binPath,
	})

	if state.Status != DependencyStatusOK {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusOK)
	}
	if state.Source != DependencySourceStorage {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceStorage)
	}
	if state.ResolvedPath != binPath {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, binPath)
	}
}

func TestPathResolverResolveFallsBackToLookPath(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		if file != "ffmpeg" {
			t.Fatalf("LookPath() received %q, want %q", file, "ffmpeg")
		}
		return "/mock/bin/ffmpeg", nil
	}

	state := resolver.Resolve(DependencySpec{Name: "ffmpeg", Command: "ffmpeg"})

	if state.Status != DependencyStatusOK {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusOK)
	}
	if state.Source != DependencySourceLookPath {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceLookPath)
	}
	if state.ResolvedPath != "/mock/bin/ffmpeg" {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, "/mock/bin/ffmpeg")
	}
}

func TestPathResolverResolveReportsMissingWhenNotFound(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}

	state := resolver.Resolve(DependencySpec{Name: "ffmpeg", Command: "ffmpeg"})

	if state.Status != DependencyStatusMissing {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusMissing)
	}
	if state.Source != DependencySourceLookPath {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceLookPath)
	}
	if state.ResolvedPath != "" {
		t.Fatalf("state.ResolvedPath = %q, want empty", state.ResolvedPath)
	}
	if state.Error == "" {
		t.Fatalf("state.Error should not be empty")
	}
}

func TestPathResolverResolveConfiguredMissingReturnsMissing(t *testing.T) {
	missingPath := filepath.Join(t.TempDir(), "missing-ffmpeg")

	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}

	state := resolver.Resolve(DependencySpec{
		Name:        "ffmpeg",
		Command:     "ffmpeg",
		StoragePath: missingPath,
	})

	if state.Status != DependencyStatusMissing {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusMissing)
	}
	if state.Source != DependencySourceStorage {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceStorage)
	}
	if state.ResolvedPath != missingPath {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, missingPath)
	}
	if state.Error == "" {
		t.Fatalf("state.Error should not be empty")
	}
}

func TestPathResolverResolveConfiguredStatFailureReturnsError(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}
	resolver.AbsPath = func(path string) (string, error) {
		return "/mock/configured/path", nil
	}
	resolver.Stat = func(name string) (os.FileInfo, error) {
		if name != "/mock/configured/path" {
			t.Fatalf("Stat() received %q, want %q", name, "/mock/configured/path")
		}
		return nil, errors.New("permission denied")
	}

	state := resolver.Resolve(DependencySpec{
		Name:        "ffmpeg",
		Command:     "ffmpeg",
		StoragePath: "ignored",
	})

	if state.Status != DependencyStatusError {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusError)
	}
	if state.Source != DependencySourceStorage {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceStorage)
	}
	if state.ResolvedPath != "/mock/configured/path" {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, "/mock/configured/path")
	}
	if !strings.Contains(state.Error, "permission denied") {
		t.Fatalf("state.Error = %q, want to contain %q", state.Error, "permission denied")
	}
}

func TestBuildDependencyInventoryCarriesConfiguredPaths(t *testing.T) {
	specs := BuildDependencyInventory("/opt/ff/ffmpeg", "")

	ffmpegSpec, ok := findDependencySpec(specs, "ffmpeg")
	if !ok {
		t.Fatalf("ffmpeg spec not found")
	}
	ffprobeSpec, ok := findDependencySpec(specs, "ffprobe")
	if !ok {
		t.Fatalf("ffprobe spec not found")
	}

	if ffmpegSpec.StoragePath != "/opt/ff/ffmpeg" {
		t.Fatalf("ffmpegSpec.StoragePath = %q, want %q", ffmpegSpec.StoragePath, "/opt/ff/ffmpeg")
	}
	if ffprobeSpec.StoragePath != "" {
		t.Fatalf("ffprobeSpec.StoragePath = %q, want empty", ffprobeSpec.StoragePath)
	}
	if ffmpegSpec.Tier != DependencyTierMust || ffprobeSpec.Tier != DependencyTierMust {
		t.Fatalf("media tools must be tier %q", DependencyTierMust)
	}
}

func TestApplyDependencyStatesRecordsResolvedPaths(t *testing.T) {
	oldFfmpeg, oldFfprobe := storage.FfmpegPath, storage.FfprobePath
	t.Cleanup(func() { storage.FfmpegPath, storage.FfprobePath = oldFfmpeg, oldFfprobe })

	err := applyDependencyStates([]DependencyState{
		{DependencySpec: DependencySpec{ID: "ffmpeg", Name: "ffmpeg", Tier: DependencyTierMust}, Status: DependencyStatusOK, ResolvedPath: "/bin/ffmpeg"},
		{DependencySpec: DependencySpec{ID: "ffprobe", Name: "ffprobe", Tier: DependencyTierMust}, Status: DependencyStatusOK, ResolvedPath: "/bin/ffprobe"},
	})
	if err != nil {
		t.Fatalf("applyDependencyStates() error = %v", err)
	}
	if storage.FfmpegPath != "/bin/ffmpeg" || storage.FfprobePath != "/bin/ffprobe" {
		t.Fatalf("paths = %q, %q", storage.FfmpegPath, storage.FfprobePath)
	}
}

func TestApplyDependencyStatesFailsOnMissingMustHave(t *testing.T) {
	oldFfmpeg, oldFfprobe := storage.FfmpegPath, storage.FfprobePath
	t.Cleanup(func() { storage.FfmpegPath, storage.FfprobePath = oldFfmpeg, oldFfprobe })

	err := applyDependencyStates([]DependencyState{
		{DependencySpec: DependencySpec{ID: "ffmpeg", Name: "ffmpeg", Tier: DependencyTierMust}, Status: DependencyStatusOK, ResolvedPath: "/bin/ffmpeg"},
		{DependencySpec: DependencySpec{ID: "ffprobe", Name: "ffprobe", Tier: DependencyTierMust}, Status: DependencyStatusMissing},
	})
	if err == nil || !strings.Contains(err.Error(), "ffprobe") {
		t.Fatalf("applyDependencyStates() error = %v, want ffprobe missing", err)
	}
}

func TestFormatDependencyReport(t *testing.T) {
	report := FormatDependencyReport([]DependencyState{{
		DependencySpec: DependencySpec{Name: "ffmpeg", Tier: DependencyTierMust, Hint: "install it"},
		Status:         DependencyStatusMissing,
		Source:         DependencySourceLookPath,
		Error:          "executable file not found",
	}})

	for _, want := range []string{"ffmpeg [MUST]: missing", "path=unknown", "source=lookpath", "error: executable file not found", "hint: install it"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}

func findDependencySpec(specs []DependencySpec, id string) (DependencySpec, bool) {
	for _, spec := range specs {
		if spec.ID == id {
			return spec, true
		}
	}
	return DependencySpec{}, false
}
