package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultPort is the control-channel port.
	DefaultPort = 4242

	// DefaultMaxSessions is the admission cap.
	DefaultMaxSessions = 3

	// DefaultWelcomeMessage greets an admitted client.
	DefaultWelcomeMessage = "Connection established\n"

	// DefaultRefusalMessage is sent to a client over the cap.
	DefaultRefusalMessage = "Connection refused\n"

	// DefaultRefusalHold is how long a refused client is kept waiting
	// before the connection is closed.
	DefaultRefusalHold = 10 * time.Second

	// DefaultHeartbeatInterval is the cadence of the "alive" entry.
	DefaultHeartbeatInterval = 10 * time.Second

	// DefaultGracePeriod bounds how long shutdown waits for sessions.
	DefaultGracePeriod = 5 * time.Second

	// DefaultStartupTimeout is how long the launching process waits for
	// the background daemon to report ready.
	DefaultStartupTimeout = 5 * time.Second

	// DefaultConnTimeout is the client's dial timeout.
	DefaultConnTimeout = 5 * time.Second

	DefaultLockPath    = "/var/lock/matt_daemon.lock"
	DefaultLogPath     = "/var/log/matt_daemon/matt_daemon.log"
	DefaultServiceName = "Matt_daemon"
	DefaultWorkDir     = "/"

	// DefaultHost is where the client looks for the daemon.
	DefaultHost = "127.0.0.1"
)
