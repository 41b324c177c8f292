// Package client is the interactive side of the control channel: it
// connects to a running daemon, shows the greeting and relays what the
// user types until either side hangs up.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"mattd/internal/errors"
	"mattd/internal/transport"
	"mattd/util"
)

// Hint is shown on interactive terminals after a successful greeting.
const Hint = "type 'quit' to stop the daemon"

// Client connects to a daemon at Address.
type Client struct {
	Dialer         transport.Dialer
	Address        string
	RefusalMessage string        // greeting that means the daemon is full
	GreetTimeout   time.Duration // 0 waits forever
	NoColor        bool

	// Stdin/Stdout/Stderr default to the process streams when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (c *Client) stdin() io.Reader {
	if c.Stdin != nil {
		return c.Stdin
	}
	return os.Stdin
}

func (c *Client) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

func (c *Client) stderr() io.Writer {
	if c.Stderr != nil {
		return c.Stderr
	}
	return os.Stderr
}

func (c *Client) paint(attr color.Attribute) *color.Color {
	p := color.New(attr)
	if c.NoColor {
		p.DisableColor()
	}
	return p
}

// interactive reports whether stdin is a terminal.
func (c *Client) interactive() bool {
	f, ok := c.stdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run dials the daemon, reports the greeting and relays stdin until the
// connection ends.  A full daemon yields errors.ErrRefused.
func (c *Client) Run(ctx context.Context) error {
	defer c.Dialer.Close()

	conn, err := c.Dialer.Dial(ctx, "tcp", c.Address)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.Address, err)
	}
	defer conn.Close()

	if c.GreetTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(c.GreetTimeout)) //nolint:errcheck
	}
	br := bufio.NewReader(conn)
	greeting, err := br.ReadString('\n')
	if err != nil && greeting == "" {
		return fmt.Errorf("read greeting from %s: %w", c.Address, err)
	}
	conn.SetReadDeadline(time.Time{}) //nolint:errcheck

	line := strings.TrimSpace(greeting)
	if c.RefusalMessage != "" && line == strings.TrimSpace(c.RefusalMessage) {
		c.paint(color.FgRed).Fprintln(c.stderr(), line) //nolint:errcheck
		return errors.ErrRefused
	}
	c.paint(color.FgGreen).Fprintln(c.stdout(), line) //nolint:errcheck
	if c.interactive() {
		c.paint(color.Faint).Fprintln(c.stdout(), Hint) //nolint:errcheck
	}

	// Whatever arrived with the greeting goes out before the relay.
	if n := br.Buffered(); n > 0 {
		rest, _ := br.Peek(n)
		c.stdout().Write(rest) //nolint:errcheck
	}

	return util.BidirectionalCopy(ctx, conn, c.stdin(), c.stdout())
}
