//go:build !unix

package daemon

import (
	"context"

	"mattd/internal/errors"
)

// ReExec is unavailable without Unix sessions; run in the foreground
// under a service manager instead.
type ReExec struct {
	Args    []string
	WorkDir string
}

func (r *ReExec) Detached() bool { return false }

func (r *ReExec) Spawn(ctx context.Context) error { return errors.ErrDetachUnsupported }

func (r *ReExec) Settle() error { return errors.ErrDetachUnsupported }

func (r *ReExec) Ready() error { return nil }
