package report

import (
	"path/filepath"
	"testing"

	coreerrors "github.com/davidahmann/reportstore/core/errors"
	"github.com/davidahmann/reportstore/internal/testutil"
)

func TestReadMetadataWithName(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteMetadata(t, dir, "proj")

	metadata, err := ReadMetadata(path)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if metadata.Name != "proj" {
		t.Fatalf("unexpected name: %s", metadata.Name)
	}
}

func TestReadMetadataWithoutName(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteMetadata(t, dir, "")

	metadata, err := ReadMetadata(path)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if metadata.Name != "" {
		t.Fatalf("expected empty name, got %s", metadata.Name)
	}
}

func TestReadMetadataSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	testutil.WriteFile(t, path, []byte(`{"name": 12}`))

	_, err := ReadMetadata(path)
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if coreerrors.CategoryOf(err) != coreerrors.CategoryParseFailed {
		t.Fatalf("unexpected category: %s", coreerrors.CategoryOf(err))
	}
	if coreerrors.CodeOf(err) != "metadata_schema_mismatch" {
		t.Fatalf("unexpected code: %s", coreerrors.CodeOf(err))
	}
}

func TestReadMetadataInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	testutil.WriteFile(t, path, []byte("{"))

	_, err := ReadMetadata(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if coreerrors.CategoryOf(err) != coreerrors.CategoryParseFailed {
		t.Fatalf("unexpected category: %s", coreerrors.CategoryOf(err))
	}
}
