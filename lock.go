package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockDirPermissions matches the data directory permissions (owner rwx, group/other rx).
const lockDirPermissions = 0o755

var errAlreadyRunning = errors.New("another gupload upload or watch is already running")

// acquireLock takes the process-wide exclusive lock at path without
// blocking. Two concurrent runs against one account would interleave their
// requests and defeat the rate limit. The returned function releases it.
func acquireLock(path string) (release func(), err error) {
	if path == "" {
		return nil, fmt.Errorf("lock file path is empty: cannot determine data directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), lockDirPermissions); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	if !locked {
		return nil, fmt.Errorf("%w (could not lock %s)", errAlreadyRunning, path)
	}

	return func() {
		fl.Unlock() //nolint:errcheck // process is finishing either way
	}, nil
}
