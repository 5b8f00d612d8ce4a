// Package watch reruns a job whenever files under a directory change.
// Event bursts are debounced, and a change arriving mid-run cancels the
// in-flight job before the rerun starts, so at most one job runs at a
// time and the latest state always wins.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/logging"
)

var log = logging.GetLogger("watch")

// Options configures a watch loop.
type Options struct {
	// Dir is watched recursively.
	Dir string

	// Debounce is the quiet period after the last event before the job
	// reruns.
	Debounce time.Duration
}

// Job is the work rerun on every change. The context is cancelled when
// a newer change supersedes the run.
type Job func(ctx context.Context) error

// Run watches opts.Dir and invokes job once immediately, then again
// after every debounced change burst. Job errors are logged, not
// fatal; the loop only returns when ctx is cancelled or the watcher
// breaks.
func Run(ctx context.Context, opts Options, job Job) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create filesystem watcher")
	}
	defer func() { _ = watcher.Close() }()

	if err := addRecursive(watcher, opts.Dir); err != nil {
		return err
	}

	log.Info().Str("dir", opts.Dir).Dur("debounce", opts.Debounce).Msg("Watching for changes")

	var (
		runCtx  context.Context
		cancel  context.CancelFunc
		done    chan struct{}
		running bool
	)
	start := func() {
		runCtx, cancel = context.WithCancel(ctx)
		done = make(chan struct{})
		running = true
		go func(c context.Context, d chan struct{}) {
			defer close(d)
			if err := job(c); err != nil && c.Err() == nil {
				log.Error().Err(err).Msg("Run failed")
			}
		}(runCtx, done)
	}
	stop := func() {
		if !running {
			return
		}
		cancel()
		<-done
		running = false
	}

	// Debounce timer, armed only after an event.
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	start()
	for {
		select {
		case <-ctx.Done():
			stop()
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				stop()
				return errors.New(errors.ErrInternal, "watcher closed unexpectedly")
			}
			// Chmod-only events fire on reads and carry no content
			// change.
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						log.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch new directory")
					}
				}
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				stop()
				return errors.New(errors.ErrInternal, "watcher closed unexpectedly")
			}
			log.Warn().Err(err).Msg("Watcher error")

		case <-timer.C:
			stop()
			start()
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(p)
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrNotFound, "failed to watch %q", root)
	}
	return nil
}
