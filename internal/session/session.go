// Package session represents one accepted client connection and the
// handler that reads its command stream.
//
// A Session is owned by the goroutine running its Handler.  The only
// other party allowed to touch it is the shutdown path, through Close.
package session

import (
	"net"
	"sync"
	"sync/atomic"
)

// State is the lifecycle phase of a session.
type State int32

const (
	Active  State = iota // reading commands
	Closing              // connection torn down, handler exiting
)

func (s State) String() string {
	if s == Closing {
		return "CLOSING"
	}
	return "ACTIVE"
}

// Session binds a connection to its identity and lifecycle state.
type Session struct {
	ID   uint64
	Conn net.Conn

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

// New creates an Active session for conn.
func New(id uint64, conn net.Conn) *Session {
	return &Session{ID: id, Conn: conn}
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return State(s.state.Load()) }

// Close marks the session Closing and closes its connection.  It is
// idempotent and safe to call from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closing))
		s.closeErr = s.Conn.Close()
	})
	return s.closeErr
}
