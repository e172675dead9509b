//go:build !windows

package vibrio

import (
	"os"
	"syscall"
)

// cleanExit reports whether the child's exit status is an expected shutdown
// outcome: exit code 0, or termination by the SIGTERM we sent.
func cleanExit(state *os.ProcessState) bool {
	if state == nil {
		return false
	}
	if state.ExitCode() == 0 {
		return true
	}

	ws, ok := state.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled() && ws.Signal() == syscall.SIGTERM
}
