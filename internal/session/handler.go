package session

import (
	"bytes"
	"os"
	"strings"
	"time"

	"mattd/internal/errors"
	"mattd/internal/metrics"
	"mattd/internal/state"
	"mattd/util"
)

// QuitCommand is the only directive the control channel understands.
const QuitCommand = "quit"

const (
	// DefaultFlushAfter is how long an unterminated line waits for
	// the rest of its bytes before it is taken as sent.
	DefaultFlushAfter = 200 * time.Millisecond

	// MaxLineLength bounds a pending line; longer input is processed
	// in pieces of this size.
	MaxLineLength = 4096
)

// Handler runs the read loop of one session.
type Handler struct {
	Logger  *util.Logger
	Metrics *metrics.Collector
	State   *state.State

	// FlushAfter overrides DefaultFlushAfter.
	FlushAfter time.Duration

	// OnClose runs after the connection is closed and the admission
	// slot is released.  The listener uses it to forget the session.
	OnClose func(*Session)
}

// Serve reads from s until the client disconnects, the connection is
// closed underneath it, or the client sends quit.
//
// Input is newline-delimited.  A line split across reads is joined
// before it is interpreted; a trailing line with no newline is taken
// as complete once the client goes quiet for FlushAfter, or at
// disconnect.
func (h *Handler) Serve(s *Session) {
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	defer h.finish(s)

	var pending []byte
	for {
		if len(pending) > 0 {
			s.Conn.SetReadDeadline(time.Now().Add(h.flushAfter())) //nolint:errcheck
		} else {
			s.Conn.SetReadDeadline(time.Time{}) //nolint:errcheck
		}

		n, err := s.Conn.Read(*buf)
		if n > 0 {
			h.Metrics.BytesReceived(int64(n))
			var quit bool
			pending, quit = h.consume(append(pending, (*buf)[:n]...))
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, os.ErrDeadlineExceeded) && len(pending) > 0 && s.State() == Active {
			quit := h.handleLine(pending)
			pending = pending[:0]
			if quit {
				return
			}
			continue
		}

		// Zero bytes: the client is gone or the connection was closed.
		if s.State() == Closing {
			h.Logger.Info("Session %d closed by shutdown", s.ID)
			return
		}
		if len(pending) > 0 && h.handleLine(pending) {
			return
		}
		h.Logger.Info("Client disconnected.")
		return
	}
}

// consume interprets every complete line in data and returns the
// unterminated remainder.  It reports whether the session should end.
func (h *Handler) consume(data []byte) ([]byte, bool) {
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		if h.handleLine(data[:i]) {
			return nil, true
		}
		data = data[i+1:]
	}
	for len(data) > MaxLineLength {
		if h.handleLine(data[:MaxLineLength]) {
			return nil, true
		}
		data = data[MaxLineLength:]
	}
	// Copy so the consumed prefix is not retained.
	return append([]byte(nil), data...), false
}

// handleLine logs one trimmed line and acts on quit.  It reports
// whether the session should end.
func (h *Handler) handleLine(raw []byte) bool {
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return false
	}
	h.Metrics.MessageReceived()
	h.Logger.Log("Received message: %s", msg)

	if msg == QuitCommand {
		h.Logger.Info("Received quit command. Shutting down daemon.")
		h.State.Stop("quit command")
		return true
	}
	return false
}

func (h *Handler) flushAfter() time.Duration {
	if h.FlushAfter > 0 {
		return h.FlushAfter
	}
	return DefaultFlushAfter
}

func (h *Handler) finish(s *Session) {
	s.Close() //nolint:errcheck
	left := h.State.Leave()
	h.Metrics.SessionClosed()
	h.Logger.Info("Client disconnected. Active connections: %d", left)
	if h.OnClose != nil {
		h.OnClose(s)
	}
}
