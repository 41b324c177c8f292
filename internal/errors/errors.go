// Package errors provides domain-specific error types for mattd.
//
// These types carry structured context (startup step, operation, address,
// lock holder) so the CLI can pick an exit code and the log can say what
// actually failed instead of repeating a bare string.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrLocked            = errors.New("daemon is already running")
	ErrStaleLock         = errors.New("stale lock marker")
	ErrLockRemoved       = errors.New("lock marker removed")
	ErrDetachUnsupported = errors.New("detaching is not supported on this platform")
	ErrChildFailed       = errors.New("background process exited before becoming ready")
	ErrStartupTimeout    = errors.New("background process did not become ready in time")
	ErrRefused           = errors.New("connection refused by daemon")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "listen", "accept", "dial", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Temporary bool   // transient condition, the loop that hit it keeps going
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Temporary {
		s += " (temporary)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// LockError describes contention on the single-instance lock.
type LockError struct {
	Path string
	PID  int // holder pid, 0 when the marker does not name one
	Err  error
}

func (e *LockError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("lock %s: %v (pid %d)", e.Path, e.Err, e.PID)
	}
	return fmt.Sprintf("lock %s: %v", e.Path, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

// StartupError marks a fatal failure in one step of the startup
// protocol.  The process exits non-zero when one reaches main.
type StartupError struct {
	Step string // "lock", "detach", "acquire", "listen"
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup %s: %v", e.Step, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, detecting whether the underlying error
// is a transient condition.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Temporary: classifyTemporary(err),
	}
}

// Startup wraps err as a failure of the named startup step.
func Startup(step string, err error) *StartupError {
	return &StartupError{Step: step, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsTemporary reports whether err represents a transient condition.
func IsTemporary(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Temporary
	}
	return classifyTemporary(err)
}

// IsStartup reports whether err is a fatal startup failure.
func IsStartup(err error) bool {
	var se *StartupError
	return errors.As(err, &se)
}

// IsClosed reports whether err is the expected result of tearing a
// connection or listener down: EOF, a closed socket, or a closed pipe.
func IsClosed(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

func classifyTemporary(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use mattd/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
