package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForRuns(t *testing.T, runs *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if runs.Load() >= want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d runs, got %d", want, runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Test Type: Integration Test (real filesystem events)
func TestRunRerunsAfterChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	finished := make(chan error, 1)
	go func() {
		finished <- Run(ctx, Options{Dir: dir, Debounce: 50 * time.Millisecond}, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()

	// The job runs once up front.
	waitForRuns(t, &runs, 1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two"), 0644))
	waitForRuns(t, &runs, 2)

	cancel()
	assert.ErrorIs(t, <-finished, context.Canceled)
}

func TestRunDebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	go func() {
		_ = Run(ctx, Options{Dir: dir, Debounce: 150 * time.Millisecond}, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()
	waitForRuns(t, &runs, 1)

	// A burst of writes inside one debounce window coalesces into a
	// single rerun.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "burst.txt"), []byte{byte(i)}, 0644))
		time.Sleep(10 * time.Millisecond)
	}
	waitForRuns(t, &runs, 2)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
}

func TestRunCancelsInflightJob(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cancelled atomic.Int32
	started := make(chan struct{}, 8)
	go func() {
		_ = Run(ctx, Options{Dir: dir, Debounce: 30 * time.Millisecond}, func(jobCtx context.Context) error {
			started <- struct{}{}
			select {
			case <-jobCtx.Done():
				cancelled.Add(1)
				return jobCtx.Err()
			case <-time.After(10 * time.Second):
				return nil
			}
		})
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never started")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "changed.txt"), []byte("x"), 0644))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("rerun never started")
	}
	assert.GreaterOrEqual(t, cancelled.Load(), int32(1),
		"the in-flight run must be cancelled before the rerun")
}

func TestRunPicksUpNewSubdirectories(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	go func() {
		_ = Run(ctx, Options{Dir: dir, Debounce: 50 * time.Millisecond}, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()
	waitForRuns(t, &runs, 1)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	waitForRuns(t, &runs, 2)

	// Writes inside the new directory are seen too.
	require.NoError(t, os.WriteFile(filepath.Join(sub, "inner.txt"), []byte("x"), 0644))
	waitForRuns(t, &runs, 3)
}
