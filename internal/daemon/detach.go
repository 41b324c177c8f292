package daemon

import "context"

// Detacher turns the current process into a background service.  A nil
// Detacher runs the daemon in the foreground.
type Detacher interface {
	// Detached reports whether this process is already the background
	// child.
	Detached() bool

	// Spawn starts the background child from the parent and blocks
	// until the child reports ready, fails, or ctx expires.
	Spawn(ctx context.Context) error

	// Settle finishes detaching inside the child: file mode mask,
	// working directory and standard streams.
	Settle() error

	// Ready tells the waiting parent that startup succeeded.
	Ready() error
}
