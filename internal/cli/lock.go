package cli

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/matzehuels/stackdoc/pkg/errors"
)

// buildLock is an advisory OS lock on <cache>/stackdoc.lock held for the
// duration of a build. Two builds sharing a cache directory would race on
// cache entries and the index pointer, so the second one refuses to start.
// The kernel drops the lock when the holder exits, however it exits.
type buildLock struct {
	fl *flock.Flock
}

// acquireLock takes the lock at path without blocking. With force, the lock
// file is replaced first, which detaches a holder that is wedged but alive.
func acquireLock(path string, force bool) (*buildLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	if force {
		if err := os.Remove(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove lock: %w", err)
		}
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"another build holds %s (%s); use --force-unlock if that build is stuck", path, lockOwner(path))
	}

	owner := fmt.Sprintf("%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(owner), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("write lock owner: %w", err)
	}
	return &buildLock{fl: fl}, nil
}

// Path is the lock file.
func (l *buildLock) Path() string { return l.fl.Path() }

// Release drops the lock. The file stays so later runs lock the same inode.
func (l *buildLock) Release() error {
	return l.fl.Unlock()
}

// lockOwner describes the holder recorded in a lock file.
func lockOwner(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "owner unknown"
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return "owner unknown"
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return "owner unknown"
	}
	return "pid " + fields[0] + " since " + fields[1]
}
