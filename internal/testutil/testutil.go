// Package testutil builds the on-disk fixtures the store pipeline
// tests need: plist report documents, metadata files, and source
// trees with known content.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const plistHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">`

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSourceFile writes a source file with content and returns its
// absolute path.
func WriteSourceFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	WriteFile(t, path, []byte(content))
	absolute, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("abs %s: %v", path, err)
	}
	return absolute
}

// WritePlistReport writes a minimal analyzer report document at path
// referencing the given absolute source files.
func WritePlistReport(t *testing.T, path string, files ...string) {
	t.Helper()
	var builder strings.Builder
	builder.WriteString(plistHeader)
	builder.WriteString("\n<dict>\n  <key>files</key>\n  <array>\n")
	for _, file := range files {
		fmt.Fprintf(&builder, "    <string>%s</string>\n", file)
	}
	builder.WriteString("  </array>\n  <key>diagnostics</key>\n  <array>\n")
	for range files {
		builder.WriteString(`    <dict>
      <key>check_name</key><string>core.NullDereference</string>
      <key>description</key><string>Dereference of null pointer</string>
      <key>category</key><string>Logic error</string>
    </dict>
`)
	}
	builder.WriteString("  </array>\n</dict>\n</plist>\n")
	WriteFile(t, path, []byte(builder.String()))
}

// WriteMetadata writes a metadata.json document in dir. An empty name
// writes a document without a name field.
func WriteMetadata(t *testing.T, dir string, name string) string {
	t.Helper()
	document := map[string]string{"command": "analyze --ctu"}
	if name != "" {
		document["name"] = name
	}
	payload, err := json.Marshal(document)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	path := filepath.Join(dir, "metadata.json")
	WriteFile(t, path, payload)
	return path
}
