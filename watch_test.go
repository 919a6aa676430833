package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gupload/internal/connect"
)

func TestDirWatcher_SettledWaitsForQuiet(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base

	w := newDirWatcher(nil, time.Second, discardLogger(), nil)
	w.now = func() time.Time { return now }

	w.observe(fsnotify.Event{Name: "/data/b.fit", Op: fsnotify.Create})
	w.observe(fsnotify.Event{Name: "/data/a.gpx", Op: fsnotify.Write})

	now = base.Add(500 * time.Millisecond)
	assert.Empty(t, w.settled(now))

	// A later write restarts the quiet period for that file only.
	w.observe(fsnotify.Event{Name: "/data/b.fit", Op: fsnotify.Write})

	assert.Equal(t, []string{"/data/a.gpx"}, w.settled(base.Add(time.Second)))
	assert.Empty(t, w.settled(base.Add(1200*time.Millisecond)))
	assert.Equal(t, []string{"/data/b.fit"}, w.settled(base.Add(1500*time.Millisecond)))
	assert.Empty(t, w.pending)
}

func TestDirWatcher_ObserveFilters(t *testing.T) {
	t.Parallel()

	w := newDirWatcher(nil, time.Second, discardLogger(), nil)

	w.observe(fsnotify.Event{Name: "/data/notes.txt", Op: fsnotify.Create})
	w.observe(fsnotify.Event{Name: "/data/run.fit", Op: fsnotify.Chmod})
	assert.Empty(t, w.pending)

	w.observe(fsnotify.Event{Name: "/data/run.FIT", Op: fsnotify.Create})
	w.observe(fsnotify.Event{Name: "/data/ride.tcx", Op: fsnotify.Create})
	assert.Len(t, w.pending, 2)

	w.observe(fsnotify.Event{Name: "/data/ride.tcx", Op: fsnotify.Remove})
	w.observe(fsnotify.Event{Name: "/data/run.FIT", Op: fsnotify.Rename})
	assert.Empty(t, w.pending)
}

func TestDirWatcher_PollInterval(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Second, newDirWatcher(nil, 4*time.Second, discardLogger(), nil).pollInterval())
	assert.Equal(t, minPollInterval, newDirWatcher(nil, 0, discardLogger(), nil).pollInterval())
}

func TestDirWatcher_RunDeliversNewFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		mu  sync.Mutex
		got []string
	)

	w := newDirWatcher([]string{dir}, 20*time.Millisecond, discardLogger(), func(_ context.Context, paths []string) error {
		mu.Lock()
		got = append(got, paths...)
		mu.Unlock()

		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.run(ctx) }()

	target := filepath.Join(dir, "run.fit")

	// The watch is registered asynchronously; rewrite until it is seen.
	require.Eventually(t, func() bool {
		assert.NoError(t, os.WriteFile(target, []byte("fit"), 0o600))
		assert.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

		mu.Lock()
		defer mu.Unlock()

		return len(got) > 0
	}, 5*time.Second, 100*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()

	for _, p := range got {
		assert.Equal(t, target, p)
	}
}

func TestDirWatcher_HandlerErrorStopsRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	boom := errors.New("boom")

	w := newDirWatcher([]string{dir}, 10*time.Millisecond, discardLogger(), func(context.Context, []string) error {
		return boom
	})

	done := make(chan error, 1)

	go func() { done <- w.run(context.Background()) }()

	var err error

	require.Eventually(t, func() bool {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, "ride.gpx"), []byte("gpx"), 0o600))

		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	require.ErrorIs(t, err, boom)
}

func TestDirWatcher_MissingDirectory(t *testing.T) {
	t.Parallel()

	w := newDirWatcher([]string{filepath.Join(t.TempDir(), "gone")}, time.Second, discardLogger(), nil)
	require.Error(t, w.run(context.Background()))
}

func TestFatalWatchError(t *testing.T) {
	t.Parallel()

	assert.True(t, fatalWatchError(connect.ErrMissingCredentials))
	assert.True(t, fatalWatchError(&connect.AuthError{Kind: connect.ErrCredentialsRejected, Step: connect.StepCredentials}))
	assert.False(t, fatalWatchError(&connect.AuthError{Kind: connect.ErrDiscoveryFailed, Step: connect.StepDiscovery}))
	assert.False(t, fatalWatchError(errors.New("network down")))
}

func TestWatchCmd_RejectsFileArgument(t *testing.T) {
	isolate(t)
	_, srv := newFakeConnect(t)
	cfg := writeServiceConfig(t, srv, "")

	path := writeActivity(t, t.TempDir(), "run.fit", 1)

	_, _, err := execute(t, "--config", cfg, "watch", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
