//go:build unix && !linux

package daemon

import "os"

// No power-event signal outside Linux.
var platformInfoSignals []os.Signal
