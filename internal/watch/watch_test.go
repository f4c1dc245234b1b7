package watch

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

func quietLogger() logging.Logger {
	return logging.New(logging.Config{Level: "error", Format: "text", Output: io.Discard})
}

func newTestWatcher(t *testing.T) (*Watcher, string, chan struct{}) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"schemaVersion": 1}`), 0o644); err != nil {
		t.Fatalf("seed config file: %v", err)
	}

	w, err := New(path, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	fired := make(chan struct{}, 1)
	w.OnChange(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	w.StartAsync()

	return w, path, fired
}

func waitFired(t *testing.T, fired chan struct{}, what string) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatalf("no change notification after %s", what)
	}
}

func TestWatcher_FiresOnWrite(t *testing.T) {
	_, path, fired := newTestWatcher(t)

	if err := os.WriteFile(path, []byte(`{"schemaVersion": 1, "usb": {}}`), 0o644); err != nil {
		t.Fatalf("rewrite config file: %v", err)
	}

	waitFired(t, fired, "writing the watched file")
}

func TestWatcher_FiresOnRenameReplace(t *testing.T) {
	_, path, fired := newTestWatcher(t)

	// Editor-style save: write a sibling then rename it over the target.
	tmp := filepath.Join(filepath.Dir(path), ".config.json.tmp")
	if err := os.WriteFile(tmp, []byte(`{"schemaVersion": 1}`), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename over watched file: %v", err)
	}

	waitFired(t, fired, "replacing the watched file by rename")
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	_, path, fired := newTestWatcher(t)

	sibling := filepath.Join(filepath.Dir(path), "unrelated.txt")
	if err := os.WriteFile(sibling, []byte("noise"), 0o644); err != nil {
		t.Fatalf("write sibling file: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("change notification fired for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopUnblocksStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("seed config file: %v", err)
	}

	w, err := New(path, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	returned := make(chan struct{})
	go func() {
		w.Start()
		close(returned)
	}()

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-returned:
	case <-time.After(3 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}
