package daemon

import (
	"os"
	"syscall"
)

var platformInfoSignals = []os.Signal{syscall.SIGPWR}
