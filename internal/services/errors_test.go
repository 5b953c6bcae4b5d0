package services_test

import (
	"errors"
	"strings"
	"testing"

	"lectern/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	err := services.Wrap(services.ErrExternalTool, "storage", "upload", "transfer failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to survive wrapping: %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to survive wrapping: %v", err)
	}
	if !strings.Contains(err.Error(), "storage: upload: transfer failed") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "sheets", "update", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsUserAbort(t *testing.T) {
	if !services.IsUserAbort(services.Wrap(services.ErrUserPause, "uploader", "transfer", "", nil)) {
		t.Fatal("pause should classify as user abort")
	}
	if services.IsUserAbort(errors.New("network down")) {
		t.Fatal("plain errors are not user aborts")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", services.Wrap(services.ErrTransient, "sheets", "update", "", nil), true},
		{"validation", services.Wrap(services.ErrValidation, "sheets", "update", "", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "catalog", "lookup", "", nil), false},
		{"user cancel", services.ErrUserCancel, false},
		{"unwrapped", errors.New("boom"), true},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
