// Package metrics provides lightweight, lock-free counters for tracking
// what a running daemon has done since it started.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one daemon process.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	sessionsAdmitted atomic.Int64
	sessionsRefused  atomic.Int64
	sessionsClosed   atomic.Int64
	messages         atomic.Int64
	bytesIn          atomic.Int64
	heartbeats       atomic.Int64
	signals          atomic.Int64
	errorsTotal      atomic.Int64
	acceptTransient  atomic.Int64
	acceptFatal      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Sessions ─────────────────────────────────────────────────────────

// SessionAdmitted records a connection that got a session handler.
func (c *Collector) SessionAdmitted() {
	if c == nil {
		return
	}
	c.sessionsAdmitted.Add(1)
}

// SessionRefused records a connection turned away at the cap.
func (c *Collector) SessionRefused() {
	if c == nil {
		return
	}
	c.sessionsRefused.Add(1)
}

// SessionClosed records a session handler exiting.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsClosed.Add(1)
}

// SessionsAdmitted returns the lifetime admitted count.
func (c *Collector) SessionsAdmitted() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsAdmitted.Load()
}

// SessionsRefused returns the lifetime refused count.
func (c *Collector) SessionsRefused() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsRefused.Load()
}

// ── Traffic ──────────────────────────────────────────────────────────

// MessageReceived records one non-empty client line.
func (c *Collector) MessageReceived() {
	if c == nil {
		return
	}
	c.messages.Add(1)
}

// BytesReceived records n bytes read from a client.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// Messages returns the total number of client lines.
func (c *Collector) Messages() int64 {
	if c == nil {
		return 0
	}
	return c.messages.Load()
}

// TotalBytesIn returns total bytes received from clients.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// ── Lifecycle ────────────────────────────────────────────────────────

// Heartbeat records one liveness tick.
func (c *Collector) Heartbeat() {
	if c == nil {
		return
	}
	c.heartbeats.Add(1)
}

// Heartbeats returns the number of liveness ticks.
func (c *Collector) Heartbeats() int64 {
	if c == nil {
		return 0
	}
	return c.heartbeats.Load()
}

// SignalReceived records one delivered OS signal.
func (c *Collector) SignalReceived() {
	if c == nil {
		return
	}
	c.signals.Add(1)
}

// Signals returns the number of delivered OS signals.
func (c *Collector) Signals() int64 {
	if c == nil {
		return 0
	}
	return c.signals.Load()
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// AcceptError records a failed accept, split by whether the net
// package flagged it as transient.
func (c *Collector) AcceptError(transient bool) {
	if c == nil {
		return
	}
	if transient {
		c.acceptTransient.Add(1)
	} else {
		c.acceptFatal.Add(1)
	}
}

// AcceptErrors returns the transient and non-transient accept failure
// counts.
func (c *Collector) AcceptErrors() (transient, fatal int64) {
	if c == nil {
		return 0, 0
	}
	return c.acceptTransient.Load(), c.acceptFatal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsAdmitted int64  `json:"sessions_admitted"`
	SessionsRefused  int64  `json:"sessions_refused"`
	SessionsClosed   int64  `json:"sessions_closed"`
	Messages         int64  `json:"messages"`
	BytesIn          int64  `json:"bytes_in"`
	Heartbeats       int64  `json:"heartbeats"`
	Signals          int64  `json:"signals"`
	ErrorsTotal      int64  `json:"errors_total"`
	AcceptTransient  int64  `json:"accept_transient,omitempty"`
	AcceptFatal      int64  `json:"accept_fatal,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsAdmitted: c.sessionsAdmitted.Load(),
		SessionsRefused:  c.sessionsRefused.Load(),
		SessionsClosed:   c.sessionsClosed.Load(),
		Messages:         c.messages.Load(),
		BytesIn:          c.bytesIn.Load(),
		Heartbeats:       c.heartbeats.Load(),
		Signals:          c.signals.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
		AcceptTransient:  c.acceptTransient.Load(),
		AcceptFatal:      c.acceptFatal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as single-line JSON, suitable for one log
// entry.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.Marshal(s)
	return string(data)
}
