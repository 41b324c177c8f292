package transport

import (
	"context"
	"net"
	"time"

	"mattd/internal/errors"
)

// TCPDialer establishes plain TCP connections to the control channel.
type TCPDialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration // 0 uses the net package default, <0 disables
}

// Dial connects to address over TCP.  Failures come back as
// *errors.NetworkError.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, errors.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
