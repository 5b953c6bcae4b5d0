package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lectern/internal/ingest"
	"lectern/internal/logging"
	"lectern/internal/testsupport"
)

func TestWatcherDeliversStabilizedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.IngestDir = t.TempDir()
	cfg.Ingest.StabilizeSeconds = 1
	cfg.Ingest.Extensions = []string{"mp4"}

	var mu sync.Mutex
	var delivered []string
	watcher := ingest.NewWatcher(cfg, func(path string) {
		mu.Lock()
		delivered = append(delivered, filepath.Base(path))
		mu.Unlock()
	}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	video := filepath.Join(cfg.Paths.IngestDir, "S1 AR T1 P0046 Ahmed.mp4")
	if err := os.WriteFile(video, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	// A sidecar with the wrong extension must be ignored.
	if err := os.WriteFile(filepath.Join(cfg.Paths.IngestDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		mu.Lock()
		count := len(delivered)
		mu.Unlock()
		if count > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("file never delivered")
		case <-time.After(100 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || delivered[0] != "S1 AR T1 P0046 Ahmed.mp4" {
		t.Fatalf("delivered = %v", delivered)
	}
}

func TestWatcherDisabledWithoutDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.IngestDir = ""

	watcher := ingest.NewWatcher(cfg, func(string) {
		t.Error("handler invoked by disabled watcher")
	}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	watcher.Wait()
}
