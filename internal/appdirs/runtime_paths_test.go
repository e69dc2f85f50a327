package appdirs

import (
	"path/filepath"
	"testing"
)

func TestRuntimePathDerivations(t *testing.T) {
	paths := Paths{
		OutputDir: filepath.Join("var", "highlight", "output"),
		CacheDir:  filepath.Join("var", "highlight", "cache"),
	}

	cases := []struct {
		name string
		got  string
		want string
	}{
		{"ClipsDirFor", ClipsDirFor(paths), filepath.Join("var", "highlight", "output", "clips")},
		{"MergedDirFor", MergedDirFor(paths), filepath.Join("var", "highlight", "output", "outputs")},
		{"UploadDirFor", UploadDirFor(paths), filepath.Join("var", "highlight", "output", "uploads")},
		{"PublishedDirFor", PublishedDirFor(paths), filepath.Join("var", "highlight", "output", "published")},
		{"TempDirFor", TempDirFor(paths), filepath.Join("var", "highlight", "cache", "tmp")},
		{"DBPathFor", DBPathFor(paths), filepath.Join("var", "highlight", "cache", "highlight.db")},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("%s() = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestRuntimePathDerivationsWithFallbacks(t *testing.T) {
	paths := Paths{OutputDir: "  "}

	if got, want := ClipsDirFor(paths), "clips"; got != want {
		t.Fatalf("ClipsDirFor() with empty output dir = %q, want %q", got, want)
	}

	if got, want := UploadDirFor(paths), "uploads"; got != want {
		t.Fatalf("UploadDirFor() with empty output dir = %q, want %q", got, want)
	}

	if got, want := DBPathFor(paths), filepath.Join("cache", "highlight.db"); got != want {
		t.Fatalf("DBPathFor() with empty cache dir = %q, want %q", got, want)
	}
}
