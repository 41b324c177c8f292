//go:build !unix

package daemon

import "os"

var terminationSignals = []os.Signal{os.Interrupt}

var infoSignals []os.Signal
