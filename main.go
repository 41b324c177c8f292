// Matt_daemon - a single-instance background service with a TCP
// control channel.
package main

import (
	"context"
	"fmt"
	"os"

	"mattd/cmd"
	"mattd/internal/errors"
)

func main() {
	// The daemon installs its own signal handling; the client sets up
	// cancellation on interrupt in cmd.
	if err := cmd.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, report(err))
		os.Exit(1)
	}
}

// report renders err for the terminal.  Fatal startup failures use the
// "Error: ..." form operators and test harnesses look for; usage and
// runtime errors carry the program name.
func report(err error) string {
	if !errors.IsStartup(err) {
		return "mattd: " + err.Error()
	}
	var se *errors.StartupError
	errors.As(err, &se)
	switch se.Step {
	case "lock", "acquire":
		return fmt.Sprintf("Error: Could not create lock file (%v)", se.Err)
	default:
		return "Error: " + se.Error()
	}
}
