package errors

import (
	stderrors "errors"
	"testing"
)

func TestWrapRoundTrip(t *testing.T) {
	base := stderrors.New("bundle too large")
	err := Wrap(base, CategorySizeExceeded, "bundle_too_large", "reduce the number of inputs per store")
	if err == nil {
		t.Fatal("expected wrapped error")
	}
	if CategoryOf(err) != CategorySizeExceeded {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
	if CodeOf(err) != "bundle_too_large" {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if HintOf(err) != "reduce the number of inputs per store" {
		t.Fatalf("unexpected hint: %s", HintOf(err))
	}
	if !stderrors.Is(err, base) {
		t.Fatal("expected wrapped error to preserve cause")
	}
}

func TestUnclassifiedErrorDefaults(t *testing.T) {
	err := stderrors.New("plain")
	if CategoryOf(err) != "" {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
	if CodeOf(err) != "" {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if HintOf(err) != "" {
		t.Fatalf("unexpected hint: %s", HintOf(err))
	}
}

func TestWrapNilCauseReturnsNil(t *testing.T) {
	if got := Wrap(nil, CategoryInternal, "internal_failure", "retry later"); got != nil {
		t.Fatalf("expected nil wrapped error, got=%v", got)
	}
}

func TestNewClassifies(t *testing.T) {
	err := New("no run name", CategoryInvalidInput, "missing_run_name", "pass --name")
	if err.Error() != "no run name" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if CategoryOf(err) != CategoryInvalidInput {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
}
