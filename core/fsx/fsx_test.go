package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTempBundlePathUnique(t *testing.T) {
	first := TempBundlePath(t.TempDir(), ".zip")
	second := TempBundlePath(t.TempDir(), ".zip")
	if first == second {
		t.Fatalf("expected unique temp paths, got %s twice", first)
	}
	if !strings.HasSuffix(first, ".zip") {
		t.Fatalf("expected .zip suffix, got %s", first)
	}
}

func TestTempBundlePathDefaultsToTempDir(t *testing.T) {
	path := TempBundlePath("", ".zip")
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("expected path under os.TempDir, got %s", path)
	}
}

func TestReplaceFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := ReplaceFileAtomic(path, []byte("new"), 0o600); err != nil {
		t.Fatalf("replace: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(content) != "new" {
		t.Fatalf("unexpected content: %s", content)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleaned up, found %d entries", len(entries))
	}
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.zip")
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("remove existing: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file gone, stat err=%v", err)
	}
}
