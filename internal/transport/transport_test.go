package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDial_UnsupportedKind(t *testing.T) {
	_, err := Dial(context.Background(), Config{Kind: "carrier-pigeon"})
	if err == nil {
		t.Fatal("Dial() error = nil, want unsupported kind error")
	}
	if _, ok := err.(*UnsupportedKindError); !ok {
		t.Fatalf("Dial() error type = %T, want *UnsupportedKindError", err)
	}
}

func TestWaitForPath_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttyUSB0")
	if err := os.WriteFile(path, []byte{}, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := WaitForPath(context.Background(), path, time.Second); err != nil {
		t.Fatalf("WaitForPath() error = %v, want nil", err)
	}
}

func TestWaitForPath_EmptyPath(t *testing.T) {
	if err := WaitForPath(context.Background(), "", time.Second); err != nil {
		t.Fatalf("WaitForPath() error = %v, want nil for empty path", err)
	}
}

func TestWaitForPath_TimesOut(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "never-appears")
	err := WaitForPath(context.Background(), path, 150*time.Millisecond)
	if err == nil {
		t.Fatal("WaitForPath() error = nil, want timeout error")
	}
	if _, ok := err.(*WaitTimeoutError); !ok {
		t.Fatalf("WaitForPath() error type = %T, want *WaitTimeoutError", err)
	}
}

func TestWaitForPath_AppearsWhileWaiting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttyUSB1")

	go func() {
		time.Sleep(120 * time.Millisecond)
		_ = os.WriteFile(path, []byte{}, 0o600)
	}()

	if err := WaitForPath(context.Background(), path, time.Second); err != nil {
		t.Fatalf("WaitForPath() error = %v, want nil once the file appears", err)
	}
}

func TestWaitForPath_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "never-appears")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForPath(ctx, path, time.Second)
	if err == nil {
		t.Fatal("WaitForPath() error = nil, want context cancellation error")
	}
}
