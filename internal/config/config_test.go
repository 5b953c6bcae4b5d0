package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

func TestDefaultNormalizesAndValidates(t *testing.T) {
	cfg := config.Default()
	if cfg.Upload.MaxConcurrent != 2 {
		t.Fatalf("unexpected default concurrency: %d", cfg.Upload.MaxConcurrent)
	}
	if cfg.Matcher.AutoAcceptConfidence != 80 {
		t.Fatalf("unexpected auto-accept threshold: %d", cfg.Matcher.AutoAcceptConfidence)
	}
	if cfg.Sheet.NameColumn != "A" || cfg.Sheet.EmbedColumn != "B" {
		t.Fatalf("unexpected sheet columns: %q %q", cfg.Sheet.NameColumn, cfg.Sheet.EmbedColumn)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected default log format: %q", cfg.Logging.Format)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[upload]
max_concurrent = 4

[sheet]
name_column = "d"
sheet_name = "Uploads"

[matcher]
auto_accept_confidence = 75
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Upload.MaxConcurrent != 4 {
		t.Fatalf("override not applied: %d", cfg.Upload.MaxConcurrent)
	}
	if cfg.Sheet.NameColumn != "D" {
		t.Fatalf("column not normalized: %q", cfg.Sheet.NameColumn)
	}
	if cfg.Sheet.SheetName != "Uploads" {
		t.Fatalf("sheet name not applied: %q", cfg.Sheet.SheetName)
	}
	if cfg.Matcher.AutoAcceptConfidence != 75 {
		t.Fatalf("matcher threshold not applied: %d", cfg.Matcher.AutoAcceptConfidence)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"concurrency too high", "[upload]\nmax_concurrent = 50\n"},
		{"bad column", "[sheet]\nname_column = \"7\"\n"},
		{"bad log format", "[logging]\nformat = \"xml\"\n"},
		{"bad year", "[upload]\ndefault_year = \"26\"\n"},
		{"bad threshold", "[matcher]\nauto_accept_confidence = 150\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error on second write")
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("sample config should load: %v", err)
	}
	if cfg.Ingest.StabilizeSeconds != 5 {
		t.Fatalf("unexpected sample ingest settle: %d", cfg.Ingest.StabilizeSeconds)
	}
}
