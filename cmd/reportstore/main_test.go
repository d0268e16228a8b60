package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/davidahmann/reportstore/internal/testutil"
)

// fakeServer serves the minimal product API surface the store command
// talks to and records what was uploaded.
type fakeServer struct {
	storedRuns int
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/products/Default", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "endpoint": "Default"})
	})
	mux.HandleFunc("POST /v1/permissions/authorized", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"granted": true})
	})
	mux.HandleFunc("POST /v1/products/Default/missing_content_hashes", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Hashes []string `json:"hashes"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{"missing": body.Hashes})
	})
	mux.HandleFunc("POST /v1/products/Default/mass_store_run", func(w http.ResponseWriter, r *http.Request) {
		f.storedRuns++
		_ = json.NewEncoder(w).Encode(map[string]any{"run_id": 7})
	})
	return mux
}

func TestRunStoreSucceeds(t *testing.T) {
	fake := &fakeServer{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()
	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}

	dir := t.TempDir()
	source := testutil.WriteSourceFile(t, dir, "main.c", "int main(void) { return 0; }\n")
	testutil.WritePlistReport(t, filepath.Join(dir, "main.plist"), source)
	testutil.WriteMetadata(t, dir, "demo")

	code := run([]string{"store", dir, "--url", fmt.Sprintf("http://%s/Default", parsed.Host)})
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if fake.storedRuns != 1 {
		t.Fatalf("stored runs = %d, want 1", fake.storedRuns)
	}
}

func TestRunRejectsUnsupportedInputType(t *testing.T) {
	code := run([]string{"store", t.TempDir(), "--type", "sarif"})
	if code != exitInvalidInput {
		t.Fatalf("exit code = %d, want %d", code, exitInvalidInput)
	}
}

func TestRunRejectsMalformedProductURL(t *testing.T) {
	code := run([]string{"store", t.TempDir(), "--url", "localhost:8001/too/deep"})
	if code != exitInvalidInput {
		t.Fatalf("exit code = %d, want %d", code, exitInvalidInput)
	}
}

func TestRunReportsMissingInputAsRuntimeFailure(t *testing.T) {
	fake := &fakeServer{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()
	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}

	code := run([]string{
		"store", filepath.Join(t.TempDir(), "absent"),
		"--url", fmt.Sprintf("http://%s/Default", parsed.Host),
	})
	if code != exitRuntimeFailure {
		t.Fatalf("exit code = %d, want %d", code, exitRuntimeFailure)
	}
	if fake.storedRuns != 0 {
		t.Fatalf("stored runs = %d, want 0", fake.storedRuns)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	code := run([]string{"store", "--nonsense"})
	if code != exitInvalidInput {
		t.Fatalf("exit code = %d, want %d", code, exitInvalidInput)
	}
}
