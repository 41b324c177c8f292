// Package core is the orchestration layer.  It composes the lifecycle
// supervisor or the interactive client from a Config.
//
// Architecture layers (bottom → top):
//
//	state, lockfile  →  session  →  listener  →  daemon  →  core  →  cmd (CLI)
//	transport        →  client   ↗
package core

import "context"

// Mode is one complete way of running mattd: the daemon or the client.
// Each mode owns its full lifecycle.
type Mode interface {
	Run(ctx context.Context) error
}
