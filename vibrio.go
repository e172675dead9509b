package vibrio

import (
	"io/fs"
	"time"
)

// Server executable and API constants
const (
	// ExecutableName is the base name of the server executable. The
	// platform/architecture suffix is appended by ResolveExecutable.
	ExecutableName = "Vibrio"

	// StatusPath is the endpoint polled during startup to detect readiness
	StatusPath = "/api/status"

	// DefaultProbeInterval is the delay between readiness probe attempts
	DefaultProbeInterval = 50 * time.Millisecond

	// DefaultStartupTimeout bounds how long Start waits for the server to
	// answer its first status probe. Zero disables the bound, matching the
	// behavior of polling until the caller's context is cancelled.
	DefaultStartupTimeout = 30 * time.Second

	// DefaultInFlight is the default number of concurrent requests a
	// LazerAsync allows before further operations queue.
	DefaultInFlight = 4

	// DefaultLogDebounce is the debounce time for log follower events to
	// coalesce rapid writes from the server process.
	DefaultLogDebounce = 25 * time.Millisecond
)

// File modes
const (
	// FileMode is the default mode for files written by SaveBeatmap
	FileMode fs.FileMode = 0o644

	// ExecMode is the mode ensured on the server executable before spawning
	ExecMode fs.FileMode = 0o755
)

// Operation represents an API or lifecycle operation type
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpSpawn launches the server executable
	OpSpawn
	// OpTerminate tears down the server process tree
	OpTerminate
	// OpStatus probes the server status endpoint
	OpStatus
	// OpHasBeatmap checks whether a beatmap is cached
	OpHasBeatmap
	// OpGetBeatmap fetches beatmap file contents
	OpGetBeatmap
	// OpClearCache clears the server's beatmap cache
	OpClearCache
	// OpDifficulty computes difficulty attributes
	OpDifficulty
	// OpPerformance computes performance attributes
	OpPerformance
)

// Operation string constants
const (
	opUnknownStr     = "unknown"
	opSpawnStr       = "spawn"
	opTerminateStr   = "terminate"
	opStatusStr      = "status"
	opHasBeatmapStr  = "has-beatmap"
	opGetBeatmapStr  = "get-beatmap"
	opClearCacheStr  = "clear-cache"
	opDifficultyStr  = "difficulty"
	opPerformanceStr = "performance"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpSpawn:
		return opSpawnStr
	case OpTerminate:
		return opTerminateStr
	case OpStatus:
		return opStatusStr
	case OpHasBeatmap:
		return opHasBeatmapStr
	case OpGetBeatmap:
		return opGetBeatmapStr
	case OpClearCache:
		return opClearCacheStr
	case OpDifficulty:
		return opDifficultyStr
	case OpPerformance:
		return opPerformanceStr
	default:
		return opUnknownStr
	}
}
