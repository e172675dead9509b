package vibrio

import (
	"errors"
	"fmt"
)

// Common errors returned by vibrio operations
var (
	// ErrUnsupportedPlatform indicates no server executable exists for the
	// current operating system / architecture pair
	ErrUnsupportedPlatform = errors.New("vibrio: unsupported platform")

	// ErrServerRunning indicates Start was called while the server is running
	ErrServerRunning = errors.New("vibrio: server is already running")

	// ErrServerNotRunning indicates an API operation was attempted before
	// Start or after Stop
	ErrServerNotRunning = errors.New("vibrio: server is not running")

	// ErrStartupTimeout indicates the server did not answer its status
	// endpoint within the startup window
	ErrStartupTimeout = errors.New("vibrio: server did not become ready")

	// ErrExactlyOneBeatmapSource indicates neither or both of a beatmap ID
	// and raw beatmap contents were supplied
	ErrExactlyOneBeatmapSource = errors.New("vibrio: exactly one of beatmap ID and beatmap contents must be set")

	// ErrExactlyOneScoreSource indicates an invalid combination of hit
	// statistics, replay, and difficulty inputs
	ErrExactlyOneScoreSource = errors.New("vibrio: exactly one of hit statistics and replay contents must be set")

	// ErrNoLogFile indicates FollowLog was called without file logging enabled
	ErrNoLogFile = errors.New("vibrio: server log capture is not enabled")
)

// OpError represents an error from a vibrio operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Path is the file path or URL path involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("vibrio %s %q: %v", e.Op.String(), e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// ServerError represents an unexpected response from the server. Expected
// outcomes (200, and 404 where a beatmap may legitimately be absent) are
// never reported as a ServerError.
type ServerError struct {
	// StatusCode is the HTTP status code returned by the server
	StatusCode int
	// Body is the response body text, if any
	Body string
}

// Error returns a formatted error message including the body text when present
func (e *ServerError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("vibrio: unexpected status code %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("vibrio: unexpected status code %d", e.StatusCode)
}

// NotFoundError indicates the server has no beatmap for the given ID
type NotFoundError struct {
	// BeatmapID is the ID that could not be resolved
	BeatmapID int
}

// Error returns a formatted error message
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("vibrio: no beatmap found for id %d", e.BeatmapID)
}
