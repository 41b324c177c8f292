// Package state holds the process-wide daemon state shared by the
// supervisor, the listener and every session handler: the cooperative
// running flag and the admission counter.
//
// All methods are safe for concurrent use.
package state

import (
	"sync"
	"sync/atomic"
)

// State is the single DaemonState of a running process.
type State struct {
	running atomic.Bool
	active  atomic.Int64
	peak    atomic.Int64

	stopOnce sync.Once
	done     chan struct{}

	mu     sync.Mutex
	reason string
}

// New returns a State with running set.
func New() *State {
	s := &State{done: make(chan struct{})}
	s.running.Store(true)
	return s
}

// Running reports whether shutdown has not been requested yet.
func (s *State) Running() bool { return s.running.Load() }

// Stop clears the running flag.  Only the first call has an effect and
// returns true; running never becomes true again.
func (s *State) Stop(reason string) bool {
	first := false
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		s.running.Store(false)
		close(s.done)
		first = true
	})
	return first
}

// Done is closed once Stop has been called.
func (s *State) Done() <-chan struct{} { return s.done }

// Reason returns the reason passed to the first Stop call.
func (s *State) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// TryAdmit reserves a session slot if fewer than limit are active and
// the daemon is still running.  The check and the increment are one
// atomic decision, so concurrent callers can never jointly exceed
// limit.
func (s *State) TryAdmit(limit int) (int, bool) {
	for {
		if !s.running.Load() {
			return int(s.active.Load()), false
		}
		cur := s.active.Load()
		if cur >= int64(limit) {
			return int(cur), false
		}
		if s.active.CompareAndSwap(cur, cur+1) {
			s.raisePeak(cur + 1)
			return int(cur + 1), true
		}
	}
}

// Leave releases a slot taken by TryAdmit and returns the new count.
// The count never drops below zero.
func (s *State) Leave() int {
	for {
		cur := s.active.Load()
		if cur <= 0 {
			return 0
		}
		if s.active.CompareAndSwap(cur, cur-1) {
			return int(cur - 1)
		}
	}
}

// Active returns the current number of admitted sessions.
func (s *State) Active() int { return int(s.active.Load()) }

// Peak returns the highest Active value ever observed.
func (s *State) Peak() int { return int(s.peak.Load()) }

func (s *State) raisePeak(n int64) {
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			return
		}
	}
}
