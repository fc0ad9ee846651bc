// Package lock guards against overlapping agent runs. The persisted update
// state and the cleanup targets are not otherwise protected, so a
// misconfigured scheduler producing concurrent executions could race on
// state writes or double-spend the byte budget.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Guard is a held single-instance file lock.
type Guard struct {
	fileLock *flock.Flock
}

// Acquire takes a non-blocking exclusive lock on path, creating the parent
// directory if needed. It fails immediately when another instance holds the
// lock. Uses gofrs/flock for cross-platform behavior (Unix + Windows).
func Acquire(path string) (*Guard, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fileLock := flock.New(path)
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another hostkeeper instance is already running (lock held on %s)", path)
	}

	return &Guard{fileLock: fileLock}, nil
}

// Release drops the lock. Safe to call once after a successful Acquire.
func (g *Guard) Release() {
	_ = g.fileLock.Unlock()
}
