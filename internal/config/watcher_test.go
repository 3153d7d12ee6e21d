package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatcher_NotifiesOnPersonaChange(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(ConfigPath(home), []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(PersonaPath(home), []byte("persona v1"), 0o644); err != nil {
		t.Fatalf("write persona: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(home, nil)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	if err := os.WriteFile(PersonaPath(home), []byte("persona v2"), 0o644); err != nil {
		t.Fatalf("rewrite persona: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Path != PersonaPath(home) {
			t.Errorf("unexpected event path: %q", ev.Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}
}
