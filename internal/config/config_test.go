package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashgrove/legion/internal/config"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Load(filepath.Join(dir, "config.yaml"), slog.Default())

	want := config.Default()
	if cfg.Router.MaxQueueSize != want.Router.MaxQueueSize {
		t.Fatalf("max_queue_size = %d, want default %d", cfg.Router.MaxQueueSize, want.Router.MaxQueueSize)
	}
	if cfg.Resolver.ClaimWindowMs != 200 {
		t.Fatalf("claim_window_ms = %d, want 200", cfg.Resolver.ClaimWindowMs)
	}
	if cfg.Corpse.ExpiryMinutes != 30 {
		t.Fatalf("corpse.expiry_minutes = %d, want 30", cfg.Corpse.ExpiryMinutes)
	}
}

func TestLoad_MalformedFileFallsBackToDefaultsWithoutHalting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: [["), 0o644); err != nil {
		t.Fatalf("write malformed config: %v", err)
	}

	cfg := config.Load(path, slog.Default())
	if cfg.Router.MaxQueueSize != config.Default().Router.MaxQueueSize {
		t.Fatal("expected defaults on a malformed config file")
	}
}

func TestLoad_PartialFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("resolver:\n  claim_window_ms: 500\n"), 0o644); err != nil {
		t.Fatalf("write partial config: %v", err)
	}

	cfg := config.Load(path, slog.Default())
	if cfg.Resolver.ClaimWindowMs != 500 {
		t.Fatalf("claim_window_ms = %d, want 500 (overridden)", cfg.Resolver.ClaimWindowMs)
	}
	if cfg.Router.MaxQueueSize != config.Default().Router.MaxQueueSize {
		t.Fatal("expected unrelated fields to keep their defaults")
	}
}

func TestWatcher_DetectsConfigFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatalf("write initial config: %v", err)
	}

	w := config.NewWatcher(path, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	deadline := time.After(3 * time.Second)
	writeTick := time.NewTicker(50 * time.Millisecond)
	defer writeTick.Stop()

	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write updated config: %v", err)
	}

	for {
		select {
		case ev := <-w.Events():
			if filepath.Base(ev.Path) != "config.yaml" {
				t.Fatalf("expected config.yaml event, got %s", ev.Path)
			}
			return
		case <-writeTick.C:
			_ = os.WriteFile(path, []byte("log_level: debug\n"), 0o644)
		case <-deadline:
			t.Fatal("timed out waiting for config.yaml change event")
		}
	}
}
