// Package daemon is the lifecycle supervisor: it enforces the single
// instance, detaches from the terminal, installs signal handling, runs
// the control-channel listener and the heartbeat, and drives an
// orderly shutdown.
package daemon

import (
	"context"
	"os"
	"sync"
	"time"

	"mattd/internal/errors"
	"mattd/internal/lockfile"
	"mattd/internal/metrics"
	"mattd/internal/state"
	"mattd/util"
)

// Server is the control-channel listener run by the supervisor.
// *listener.Listener implements it.
type Server interface {
	Bind(ctx context.Context) error
	Start()
	Stop()
	// Wait blocks until every connection goroutine has returned or ctx
	// is done.
	Wait(ctx context.Context) error
	Active() int
}

// Supervisor owns the process from startup to clean exit.
type Supervisor struct {
	LockPath          string
	WatchLock         bool // stop when the lock marker is removed underneath us
	HeartbeatInterval time.Duration
	GracePeriod       time.Duration // bound on draining sessions at shutdown
	StartupTimeout    time.Duration // how long a detaching parent waits for its child

	Listener Server
	Detacher Detacher // nil runs in the foreground

	Logger  *util.Logger
	Metrics *metrics.Collector
	State   *state.State

	readyOnce sync.Once
	ready     chan struct{}
}

// Ready is closed once the daemon is serving: lock held, signals
// installed, listener bound.
func (s *Supervisor) Ready() <-chan struct{} {
	s.readyOnce.Do(func() { s.ready = make(chan struct{}) })
	return s.ready
}

// Run executes the startup protocol, blocks in the heartbeat loop until
// shutdown is requested, then shuts down.  Cancelling ctx requests
// shutdown.  Any startup failure is logged and returned as an
// *errors.StartupError.
func (s *Supervisor) Run(ctx context.Context) error {
	s.Ready()
	child := s.Detacher != nil && s.Detacher.Detached()

	if !child {
		s.Logger.Info("Daemon starts (pid %d)", os.Getpid())
	}

	// 1. Refuse to start next to a live instance.
	if err := lockfile.Check(s.LockPath); err != nil {
		if !errors.Is(err, errors.ErrStaleLock) {
			s.Logger.Error("Error: Could not create lock file: %v", err)
			return errors.Startup("lock", err)
		}
		s.Logger.Info("Replacing stale lock: %v", err)
	}

	// 2. Detach.
	if s.Detacher != nil {
		if !child {
			return s.spawn(ctx)
		}
		if err := s.Detacher.Settle(); err != nil {
			s.Logger.Error("Could not detach from terminal: %v", err)
			return errors.Startup("detach", err)
		}
		s.Logger.Info("Detached into background (pid %d)", os.Getpid())
	}

	// 3. Take the lock.
	lock, err := lockfile.Acquire(s.LockPath)
	if err != nil {
		s.Logger.Error("Could not create lock file: %v", err)
		return errors.Startup("acquire", err)
	}

	// 4. Signals.
	stopSignals := s.installSignals()

	// 5. Control channel.
	if err := s.Listener.Bind(ctx); err != nil {
		s.Logger.Error("Bind failed: %v", err)
		stopSignals()
		s.release(lock)
		return errors.Startup("listen", err)
	}
	s.Listener.Start()

	// 6. Lock watch.
	var watcher *lockfile.Watcher
	if s.WatchLock {
		watcher, err = lock.Watch(func(op string) {
			gone := &errors.LockError{Path: s.LockPath, Err: errors.ErrLockRemoved}
			s.Logger.Error("%v (%s), stopping daemon", gone, op)
			s.State.Stop("lock file removed")
		}, func(err error) {
			s.Logger.Error("Lock watch: %v", err)
		})
		if err != nil {
			s.Logger.Error("Lock watch unavailable: %v", err)
		}
	}

	if child {
		if err := s.Detacher.Ready(); err != nil {
			s.Logger.Error("%v", err)
		}
	}
	s.Logger.Info("Daemon started successfully")
	close(s.ready)

	// 7. Heartbeat until told to stop.
	s.heartbeat(ctx)

	s.shutdown(lock, watcher, stopSignals)
	return nil
}

func (s *Supervisor) spawn(ctx context.Context) error {
	timeout := s.StartupTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Detacher.Spawn(sctx); err != nil {
		s.Logger.Error("Could not start background process: %v", err)
		return errors.Startup("detach", err)
	}
	return nil
}

func (s *Supervisor) heartbeat(ctx context.Context) {
	interval := s.HeartbeatInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for s.State.Running() {
		s.Logger.Info("Daemon is alive")
		s.Metrics.Heartbeat()

		select {
		case <-ticker.C:
		case <-s.State.Done():
		case <-ctx.Done():
			s.State.Stop("context cancelled")
		}
	}
}

func (s *Supervisor) shutdown(lock *lockfile.Lock, watcher *lockfile.Watcher, stopSignals func()) {
	s.Logger.Info("Stopping daemon (%s)", s.State.Reason())

	// The watcher goes first: our own removal of the marker is not news.
	if watcher != nil {
		watcher.Close() //nolint:errcheck
	}

	s.Listener.Stop()

	grace := s.GracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}
	wctx, cancel := context.WithTimeout(context.Background(), grace)
	if err := s.Listener.Wait(wctx); err != nil {
		s.Logger.Error("Degraded shutdown: %d session(s) still open after %v", s.Listener.Active(), grace)
	}
	cancel()

	stopSignals()
	s.release(lock)

	s.Logger.Info("Session summary: %s", s.Metrics.JSON())
	s.Logger.Info("Daemon stopped")
}

func (s *Supervisor) release(lock *lockfile.Lock) {
	if err := lock.Release(); err != nil {
		s.Logger.Error("Could not remove lock file: %v", err)
		return
	}
	s.Logger.Info("Lock file %s removed", lock.Path())
}
