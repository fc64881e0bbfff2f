package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestFileSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, `{"environments":[],"segments":[]}`)

	src := NewFileSource(path, nil)

	payload, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(payload.Body) != `{"environments":[],"segments":[]}` {
		t.Errorf("Fetch() body = %q", payload.Body)
	}
	if payload.ETag == "" {
		t.Error("Fetch() returned empty ETag")
	}

	// Unchanged content revalidates without a new payload.
	if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrNotModified) {
		t.Errorf("second Fetch() error = %v, want ErrNotModified", err)
	}

	writeConfig(t, path, `{"environments":[],"segments":[],"x":1}`)
	changed, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() after change error = %v", err)
	}
	if changed.ETag == payload.ETag {
		t.Error("ETag did not change with content")
	}
}

func TestFileSource_Fetch_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.json"), nil)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() on missing file succeeded, want error")
	}
}
