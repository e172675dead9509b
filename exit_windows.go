//go:build windows

package vibrio

import "os"

// cleanExit reports whether the child's exit status is an expected shutdown
// outcome. TerminateProcess surfaces exit code 1, so both 0 and 1 are
// accepted on Windows.
func cleanExit(state *os.ProcessState) bool {
	if state == nil {
		return false
	}
	code := state.ExitCode()
	return code == 0 || code == 1
}
