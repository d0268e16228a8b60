package client

import (
	"testing"

	coreerrors "github.com/davidahmann/reportstore/core/errors"
)

func TestSplitProductURLFull(t *testing.T) {
	parsed, err := SplitProductURL("https://codechecker.example.com:443/Default")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if parsed.Scheme != "https" || parsed.Host != "codechecker.example.com" {
		t.Fatalf("unexpected parse: %+v", parsed)
	}
	if parsed.Port != 443 || parsed.Endpoint != "Default" {
		t.Fatalf("unexpected parse: %+v", parsed)
	}
	if parsed.String() != "https://codechecker.example.com:443/Default" {
		t.Fatalf("unexpected canonical form: %s", parsed.String())
	}
}

func TestSplitProductURLDefaults(t *testing.T) {
	parsed, err := SplitProductURL("localhost/Default")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if parsed.Scheme != "http" || parsed.Port != 8001 {
		t.Fatalf("expected http and default port, got %+v", parsed)
	}
}

func TestSplitProductURLWithPort(t *testing.T) {
	parsed, err := SplitProductURL("localhost:8001/MyProduct")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if parsed.Host != "localhost" || parsed.Port != 8001 || parsed.Endpoint != "MyProduct" {
		t.Fatalf("unexpected parse: %+v", parsed)
	}
}

func TestSplitProductURLInvalid(t *testing.T) {
	cases := []string{
		"",
		"localhost:8001",
		"localhost:8001/a/b",
		"ftp://localhost:8001/Default",
		"localhost:notaport/Default",
	}
	for _, raw := range cases {
		if _, err := SplitProductURL(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		} else if coreerrors.CategoryOf(err) != coreerrors.CategoryInvalidInput {
			t.Fatalf("unexpected category for %q: %s", raw, coreerrors.CategoryOf(err))
		}
	}
}
