package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerIncludesComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	NewComponentLogger(logger, "matcher").Info("scored candidate", String("library", "S1-AR"))

	out := buf.String()
	if !strings.Contains(out, "matcher: scored candidate") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, "library=S1-AR") {
		t.Fatalf("expected attribute rendering, got %q", out)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Warn("upload failed", String("reason", "connection reset"))

	if !strings.Contains(buf.String(), `reason="connection reset"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNoopHandlerDisabled(t *testing.T) {
	if NewNop().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should never be enabled")
	}
}
