// Package lockfile implements the single-instance lock: a marker file
// holding the owner's PID, kept under an advisory exclusive lock for
// the owner's lifetime.
//
// A marker is considered held while some process holds the advisory
// lock on it, or while the PID it names is alive.  A marker whose PID
// is dead is stale and is replaced by the next Acquire.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"mattd/internal/errors"
)

// Lock is an acquired single-instance lock.
type Lock struct {
	path string
	pid  int

	mu sync.Mutex
	f  *os.File
}

// Check inspects the marker at path without taking it.  It returns nil
// when no marker exists, a LockError wrapping ErrStaleLock when the
// marker's owner is gone, and a LockError wrapping ErrLocked otherwise.
func Check(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &errors.LockError{Path: path, Err: err}
	}
	pid := parsePID(data)

	held, err := lockedByOther(path)
	if err != nil {
		return &errors.LockError{Path: path, PID: pid, Err: err}
	}
	if held {
		return &errors.LockError{Path: path, PID: pid, Err: errors.ErrLocked}
	}
	if pid > 0 && !processAlive(pid) {
		return &errors.LockError{Path: path, PID: pid, Err: errors.ErrStaleLock}
	}
	// A live PID without the advisory lock, or a marker that names no
	// PID at all: nothing proves it stale.
	return &errors.LockError{Path: path, PID: pid, Err: errors.ErrLocked}
}

// Acquire creates the marker at path, takes the advisory lock and
// records the current PID.  A stale marker is replaced.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &errors.LockError{Path: path, Err: fmt.Errorf("create lock dir: %w", err)}
	}

	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
		if err == nil {
			return claim(path, f)
		}
		if !os.IsExist(err) {
			return nil, &errors.LockError{Path: path, Err: err}
		}
		cerr := Check(path)
		switch {
		case cerr == nil:
			// Vanished between open and check.
		case errors.Is(cerr, errors.ErrStaleLock) && attempt == 0:
			if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
				return nil, &errors.LockError{Path: path, Err: rerr}
			}
		default:
			return nil, cerr
		}
		if attempt > 0 {
			return nil, &errors.LockError{Path: path, Err: errors.ErrLocked}
		}
	}
}

func claim(path string, f *os.File) (*Lock, error) {
	if err := flock(f); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &errors.LockError{Path: path, Err: errors.ErrLocked}
	}
	pid := os.Getpid()
	if _, err := f.WriteString(strconv.Itoa(pid) + "\n"); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &errors.LockError{Path: path, Err: fmt.Errorf("write pid: %w", err)}
	}
	f.Sync() //nolint:errcheck
	return &Lock{path: path, pid: pid, f: f}, nil
}

// Path returns the marker path.
func (l *Lock) Path() string { return l.path }

// PID returns the PID recorded in the marker.
func (l *Lock) PID() int { return l.pid }

// Release removes the marker and drops the advisory lock.  It is safe
// to call more than once.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	// Remove while still holding the lock so no one can claim a marker
	// that is about to disappear.
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		err = nil
	}
	funlock(l.f) //nolint:errcheck
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

func parsePID(data []byte) int {
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
