package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/gupload/internal/batch"
	"github.com/tonimelisma/gupload/internal/config"
	"github.com/tonimelisma/gupload/internal/connect"
	"github.com/tonimelisma/gupload/internal/upload"
)

// defaultSettleDelay is how long a file must stay quiet before it is
// uploaded. Devices and sync tools write activity files in several steps.
const defaultSettleDelay = 5 * time.Second

// minPollInterval bounds how often pending files are checked.
const minPollInterval = 10 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var (
		activityType string
		settle       time.Duration
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Upload new activity files as they appear",
		Long: `Watch directories (not their subdirectories) and upload every .fit, .gpx or
.tcx file that is created or rewritten there, once it has been quiet for the
settle delay. Files that appear together are uploaded as one batch with one
sign-in. Stop with Ctrl-C.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, activityType, settle, skipExisting)
		},
	}

	cmd.Flags().StringVarP(&activityType, "type", "t", "", "activity type key or display label for every upload")
	cmd.Flags().DurationVar(&settle, "settle", defaultSettleDelay, "quiet period before a new file is uploaded")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "do not retype activities that were already uploaded")

	return cmd
}

func runWatch(cmd *cobra.Command, dirs []string, activityType string, settle time.Duration, skipExisting bool) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	for _, d := range dirs {
		info, err := os.Stat(d)
		if err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}

		if !info.IsDir() {
			return fmt.Errorf("watch %s: not a directory", d)
		}
	}

	release, err := acquireLock(config.LockPath())
	if err != nil {
		return err
	}
	defer release()

	svc, err := newService(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	journal, recorder, err := openJournal(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	if journal != nil {
		defer journal.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := newBatchProgress(recorder)
	ctx = shutdownContext(ctx, cc.Logger, progress)

	loader := batch.NewLoader(cc.Logger)

	w := newDirWatcher(dirs, settle, cc.Logger, func(ctx context.Context, paths []string) error {
		activities, err := loader.Load(paths, batch.Options{Type: activityType})
		if errors.Is(err, batch.ErrNoActivities) {
			return nil
		}

		if err != nil {
			return err
		}

		progress.begin(len(activities))

		report, err := svc.uploadBatch(ctx, activities, progress, skipExisting)
		if err != nil {
			progress.begin(0)

			if fatalWatchError(err) {
				return err
			}

			cc.Logger.Warn("watch batch not uploaded",
				slog.Int("files", len(paths)),
				slog.String("error", err.Error()),
			)

			return nil
		}

		return printReport(cc, report)
	})

	cc.Statusf("Watching %d %s (settle %s). Press Ctrl-C to stop.\n",
		len(dirs), plural(len(dirs), "directory", "directories"), settle)

	return w.run(ctx)
}

// fatalWatchError reports errors that retrying on the next batch cannot fix.
func fatalWatchError(err error) bool {
	return errors.Is(err, connect.ErrMissingCredentials) || errors.Is(err, connect.ErrCredentialsRejected)
}

// dirWatcher turns filesystem events into batches of settled activity
// file paths.
type dirWatcher struct {
	dirs   []string
	settle time.Duration
	logger *slog.Logger
	handle func(ctx context.Context, paths []string) error

	pending map[string]time.Time
	now     func() time.Time
}

func newDirWatcher(
	dirs []string, settle time.Duration, logger *slog.Logger, handle func(context.Context, []string) error,
) *dirWatcher {
	return &dirWatcher{
		dirs:    dirs,
		settle:  settle,
		logger:  logger,
		handle:  handle,
		pending: make(map[string]time.Time),
		now:     time.Now,
	}
}

// run watches until ctx is canceled or handle returns an error. The event
// loop and the uploader run in separate goroutines so uploads never stall
// event draining for longer than one batch hand-off.
func (w *dirWatcher) run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer fsw.Close()

	for _, d := range w.dirs {
		if err := fsw.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}

		w.logger.Debug("watching directory", slog.String("dir", d))
	}

	batches := make(chan []string, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		return w.collect(gctx, fsw, batches)
	})

	g.Go(func() error {
		for paths := range batches {
			if err := w.handle(gctx, paths); err != nil {
				return err
			}
		}

		return nil
	})

	return g.Wait()
}

func (w *dirWatcher) pollInterval() time.Duration {
	return max(w.settle/4, minPollInterval)
}

func (w *dirWatcher) collect(ctx context.Context, fsw *fsnotify.Watcher, out chan<- []string) error {
	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			w.observe(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			ready := w.settled(w.now())
			if len(ready) == 0 {
				continue
			}

			select {
			case out <- ready:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// observe updates the pending set for one event. Chmod-only events do not
// change content and are ignored.
func (w *dirWatcher) observe(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		delete(w.pending, ev.Name)
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if upload.IsSupported(ev.Name) {
			w.pending[ev.Name] = w.now()
		}
	}
}

// settled removes and returns, sorted, every pending path that has been
// quiet for the settle delay.
func (w *dirWatcher) settled(now time.Time) []string {
	var ready []string

	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}

	slices.Sort(ready)

	return ready
}
