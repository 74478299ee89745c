package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestFsFileWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yml")
	if err := os.WriteFile(path, []byte("a"), 0600); err != nil {
		t.Fatalf("failed to write file: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventCh := make(chan struct{}, 10)
	errCh := make(chan error, 1)
	fw := NewFsFileWatcher(path, eventCh, errCh)
	started := make(chan error, 1)
	go func() { started <- fw.StartWatching(ctx) }()

	// Writes to unrelated files in the same directory are ignored; writes
	// to the watched file are reported. The watch may not be established
	// yet, so keep writing until an event arrives.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-eventCh:
			cancel()
			select {
			case err := <-started:
				if err != nil {
					t.Fatalf("unexpected error: %s", err)
				}
			case <-time.After(time.Second):
				t.Fatal("watcher did not stop")
			}
			return
		case err := <-errCh:
			t.Fatalf("unexpected error: %s", err)
		case <-tick.C:
			if err := os.WriteFile(filepath.Join(dir, "other.yml"), []byte("b"), 0600); err != nil {
				t.Fatalf("failed to write file: %s", err)
			}
			if err := os.WriteFile(path, []byte("c"), 0600); err != nil {
				t.Fatalf("failed to write file: %s", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for an event")
		}
	}
}

func TestFsFileWatcherRelevant(t *testing.T) {
	fw := NewFsFileWatcher("/etc/config/manifest.yml", nil, nil)
	for _, tt := range []struct {
		name     string
		relevant bool
	}{
		{"/etc/config/manifest.yml", true},
		{"/etc/config/..data", true},
		{"/etc/config/other.yml", false},
	} {
		event := fsnotifyEvent(tt.name)
		if got := fw.relevant(event); got != tt.relevant {
			t.Errorf("%s: expected relevant=%t, got %t", tt.name, tt.relevant, got)
		}
	}
}

func fsnotifyEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Create}
}
