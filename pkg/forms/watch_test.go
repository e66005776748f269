package forms_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-quoteforms/pkg/forms"
)

const marineYAML = `id: marine
title: Marine
steps:
  - title: Vessel
    fields:
      - {name: hullId, type: text}
`

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marine.yaml"), []byte(marineYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg := forms.NewRegistry()
	if err := reg.ReloadFS(os.DirFS(dir)); err != nil {
		t.Fatalf("ReloadFS: %v", err)
	}

	reloaded := make(chan error, 4)
	w := forms.NewWatcher(reg, dir, forms.WithDebounce(20*time.Millisecond), forms.OnReload(func(err error) {
		reloaded <- err
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	second := []byte("id: aviation\ntitle: Aviation\nsteps:\n  - title: Aircraft\n    fields:\n      - {name: tail, type: text}\n")
	if err := os.WriteFile(filepath.Join(dir, "aviation.yaml"), second, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not reload")
	}
	if _, err := reg.Get("aviation"); err != nil {
		t.Fatalf("expected aviation form after reload: %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
