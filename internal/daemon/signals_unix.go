//go:build unix

package daemon

import (
	"os"
	"syscall"
)

var terminationSignals = []os.Signal{
	syscall.SIGHUP,
	syscall.SIGINT,
	syscall.SIGQUIT,
	syscall.SIGTERM,
}

var infoSignals = append([]os.Signal{
	syscall.SIGCHLD,
	syscall.SIGURG,
}, platformInfoSignals...)
