package util

import (
	"context"
	"io"
	"net"

	"mattd/internal/errors"
)

// BidirectionalCopy shuffles data between a network connection and an
// arbitrary reader/writer pair (typically stdin/stdout) until the
// remote side closes or the context is cancelled.
//
// It returns once the network side is done.  A reader that blocks
// forever (a terminal nobody types into) is left behind; its goroutine
// ends on the next read once the connection is closed.
func BidirectionalCopy(ctx context.Context, conn net.Conn, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	netDone := make(chan struct{})

	// network → writer
	go func() {
		defer close(netDone)
		_, err := io.Copy(w, conn)
		errCh <- err
		cancel()
	}()

	// reader → network
	go func() {
		_, err := io.Copy(conn, r)
		// Half-close so the daemon sees EOF, but keep reading until it
		// hangs up on its side.
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.CloseWrite() //nolint:errcheck
		}
		errCh <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock any pending reads/writes
	<-netDone

	for {
		select {
		case err := <-errCh:
			if err != nil && !errors.IsClosed(err) {
				return err
			}
		default:
			return nil
		}
	}
}
