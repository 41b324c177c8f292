// Package listener accepts control-channel connections and bounds how
// many sessions run at once.
package listener

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"mattd/internal/errors"
	"mattd/internal/metrics"
	"mattd/internal/session"
	"mattd/internal/state"
	"mattd/util"
)

// Listener owns the listening socket, the admission decision and the
// registry of live sessions.
type Listener struct {
	Address        string // "host:port"; empty host binds all interfaces
	MaxSessions    int
	WelcomeMessage string
	RefusalMessage string
	RefusalHold    time.Duration

	Logger  *util.Logger
	Metrics *metrics.Collector
	State   *state.State

	ln     net.Listener
	nextID atomic.Uint64

	mu       sync.Mutex
	sessions map[*session.Session]struct{}
	stopped  bool
	stopCh   chan struct{}
	stopOnce sync.Once

	wg sync.WaitGroup // accept loop, handlers, refusal holds
}

// Bind opens the listening socket.  It must be called before Start.
func (l *Listener) Bind(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.Address)
	if err != nil {
		return errors.Wrap("listen", l.Address, err)
	}
	l.mu.Lock()
	l.ln = ln
	l.sessions = make(map[*session.Session]struct{})
	l.stopCh = make(chan struct{})
	l.mu.Unlock()

	l.Logger.Info("Socket listener started on port %d", util.PortOf(ln.Addr()))
	return nil
}

// Addr returns the bound address, or nil before Bind.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Start runs the accept loop in its own goroutine.  Bind must have
// succeeded first.
func (l *Listener) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.serve()
	}()
}

// serve accepts until Stop is called or the daemon stops running.
func (l *Listener) serve() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.acceptFailed(err) {
				return
			}
			continue
		}
		l.admit(conn)
	}
}

// acceptFailed logs one accept error and reports whether the accept
// loop must end.  It ends once the daemon is stopping or the socket is
// gone; any other failure is transient and accepting continues.
func (l *Listener) acceptFailed(err error) bool {
	werr := errors.Wrap("accept", l.Address, err)
	l.Logger.Error("Accept failed: %v", werr)

	if l.isStopped() || !l.State.Running() {
		l.Logger.Info("Socket listener stopped")
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		l.Metrics.AcceptError(false)
		l.Metrics.RecordError(werr.Error())
		l.Logger.Info("Socket listener stopped")
		return true
	}
	l.Metrics.AcceptError(errors.IsTemporary(werr))
	l.Metrics.RecordError(werr.Error())
	return false
}

func (l *Listener) admit(conn net.Conn) {
	if !l.State.Running() {
		conn.Close()
		return
	}

	count, ok := l.State.TryAdmit(l.MaxSessions)
	if !ok {
		if !l.State.Running() {
			conn.Close()
			return
		}
		l.Metrics.SessionRefused()
		l.Logger.Info("Maximum number of clients reached. New connection will be refused.")
		l.wg.Add(1)
		go l.refuse(conn)
		return
	}

	sess := session.New(l.nextID.Add(1), conn)
	if !l.register(sess) {
		// Stop landed between TryAdmit and here.
		sess.Close()
		l.State.Leave()
		return
	}
	l.Metrics.SessionAdmitted()
	l.Logger.Info("New client connected. Active connections: %d", count)

	if _, err := conn.Write([]byte(l.WelcomeMessage)); err != nil {
		l.Logger.Error("Welcome to session %d failed: %v", sess.ID, err)
	}

	h := &session.Handler{
		Logger:  l.Logger,
		Metrics: l.Metrics,
		State:   l.State,
		OnClose: l.deregister,
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		h.Serve(sess)
	}()
}

// refuse tells the client there is no room, holds the connection for
// RefusalHold to slow the client down, then closes it.
func (l *Listener) refuse(conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()

	if _, err := conn.Write([]byte(l.RefusalMessage)); err != nil {
		return
	}
	t := time.NewTimer(l.RefusalHold)
	defer t.Stop()
	select {
	case <-t.C:
	case <-l.stopCh:
	}
}

func (l *Listener) register(s *session.Session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	l.sessions[s] = struct{}{}
	return true
}

func (l *Listener) deregister(s *session.Session) {
	l.mu.Lock()
	delete(l.sessions, s)
	l.mu.Unlock()
}

func (l *Listener) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Active returns the number of registered sessions.
func (l *Listener) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Stop closes the listening socket, every live session and every
// pending refusal hold.  It is idempotent.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		ln := l.ln
		live := make([]*session.Session, 0, len(l.sessions))
		for s := range l.sessions {
			live = append(live, s)
		}
		if l.stopCh != nil {
			close(l.stopCh)
		}
		l.mu.Unlock()

		if ln != nil {
			ln.Close()
		}
		for _, s := range live {
			s.Close()
		}
	})
}

// Wait blocks until the accept loop, all handlers and all refusal
// holds have returned, or ctx is done.
func (l *Listener) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
