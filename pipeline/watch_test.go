package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDatasetWatcherRunsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("Good.\t1\n"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	watcher := NewDatasetWatcher(path, 50*time.Millisecond, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ran := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx, func(context.Context) error {
			ran <- struct{}{}
			return nil
		})
	}()

	// Writes to other files in the directory are ignored.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for triggered := false; !triggered; {
		select {
		case <-ran:
			triggered = true
		case <-tick.C:
			if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := os.WriteFile(path, []byte("Good.\t1\nBad.\t0\n"), 0o600); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		case <-deadline:
			t.Fatal("job was not run after the dataset changed")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats := watcher.GetStats(); stats.Runs < 1 || stats.Failures != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestDatasetWatcherMissingDirectory(t *testing.T) {
	watcher := NewDatasetWatcher(filepath.Join(t.TempDir(), "nope", "data.txt"), 0, nil)
	if err := watcher.Run(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestStopTimerDrainsFiredTick(t *testing.T) {
	timer := time.NewTimer(time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	stopTimer(timer)
	timer.Reset(time.Hour)

	select {
	case <-timer.C:
		t.Fatal("stale tick delivered after Reset")
	default:
	}
	stopTimer(timer)
}
