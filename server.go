package vibrio

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/shirou/gopsutil/v4/process"
)

// Server owns one spawned instance of the Vibrio executable. The port is
// chosen once at construction and never changes for the life of the
// instance. The process handle is held exclusively by the Server: it is
// non-nil exactly while the server is running.
//
// Server does not wait for the spawned process to accept requests; that is
// the readiness probe's job. Most callers want the Lazer facade, which
// composes both.
type Server struct {
	// Port is the TCP port the server is told to bind
	Port int

	// ExecutablePath is the resolved path to the server executable
	ExecutablePath string

	// CaptureLog selects the output sink for the child's combined
	// stdout/stderr: a temporary file when true, discard when false.
	CaptureLog bool

	// Logger receives lifecycle diagnostics
	Logger *slog.Logger

	// mu protects the process handle and lifecycle flag
	mu      sync.Mutex
	cmd     *exec.Cmd
	logFile *os.File
	logPath string
	running bool
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithCaptureLog captures the child's stdout/stderr into a temporary file
// instead of discarding it. The file is retained after Stop for diagnostics;
// its path is available from LogPath.
func WithCaptureLog() ServerOption {
	return func(s *Server) {
		s.CaptureLog = true
	}
}

// WithServerLogger sets the logger used for lifecycle diagnostics
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewServer creates a Server for the given executable and port. The process
// is not spawned until Start.
func NewServer(executablePath string, port int, opts ...ServerOption) *Server {
	s := &Server{
		Port:           port,
		ExecutablePath: executablePath,
		Logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Addr returns the base URL the server is bound to.
func (s *Server) Addr() string {
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// Running reports whether the child process has been spawned and not yet
// stopped.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// PID returns the child's process ID, or 0 when not running.
func (s *Server) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// LogPath returns the path of the captured log file, or "" when logging is
// disabled or the server has never started. The file survives Stop so it can
// be inspected after shutdown.
func (s *Server) LogPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logPath
}

// Start spawns the server executable bound to this Server's port. It returns
// ErrServerRunning if the process is already running. Start does not block
// until the server accepts requests.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerRunning
	}

	cmd := exec.Command(s.ExecutablePath, "--urls", s.Addr())
	if s.CaptureLog {
		f, err := os.CreateTemp("", "vibrio-*.log")
		if err != nil {
			return &OpError{Op: OpSpawn, Path: s.ExecutablePath, Err: err}
		}
		s.logFile = f
		s.logPath = f.Name()
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if s.logFile != nil {
			_ = s.logFile.Close()
			_ = os.Remove(s.logPath)
			s.logFile = nil
			s.logPath = ""
		}
		return &OpError{Op: OpSpawn, Path: s.ExecutablePath, Err: err}
	}

	s.Logger.Info("hosting server", "port", s.Port, "pid", cmd.Process.Pid)

	s.cmd = cmd
	s.running = true
	return nil
}

// Stop terminates the child process tree and waits for the root process to
// exit. Descendants are enumerated first and each receives a terminate
// signal before the root. Stop is idempotent: calling it on a stopped Server
// is a no-op.
//
// An exit status that is neither success nor termination by our own signal
// is logged as a diagnostic; it does not fail Stop.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.Logger.Info("shutting down server", "port", s.Port)

	pid := s.cmd.Process.Pid
	if err := terminateTree(pid); err != nil {
		return &OpError{Op: OpTerminate, Path: s.ExecutablePath, Err: err}
	}

	// The error from Wait restates a non-zero exit status; the status
	// itself is inspected below.
	_ = s.cmd.Wait()
	state := s.cmd.ProcessState

	if !cleanExit(state) {
		s.Logger.Error("server did not shut down cleanly", "pid", pid, "status", state.String())
	}

	if s.logFile != nil {
		_ = s.logFile.Close()
		s.logFile = nil
		s.Logger.Info("server output retained", "path", s.logPath)
	}

	s.cmd = nil
	s.running = false
	s.Logger.Info("server closed", "port", s.Port)
	return nil
}

// terminateTree signals every descendant of pid and then pid itself. Each
// descendant is an independent process, so ordering does not affect
// correctness; failures to signal an already-gone child are ignored.
func terminateTree(pid int) error {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		// Process already gone; nothing to signal.
		return nil
	}

	for _, child := range descendants(proc) {
		_ = child.Terminate()
	}

	if err := proc.Terminate(); err != nil {
		return fmt.Errorf("terminating pid %d: %w", pid, err)
	}
	return nil
}

// descendants returns the full transitive set of children of proc.
func descendants(proc *process.Process) []*process.Process {
	children, err := proc.Children()
	if err != nil {
		return nil
	}

	all := make([]*process.Process, 0, len(children))
	for _, child := range children {
		all = append(all, descendants(child)...)
		all = append(all, child)
	}
	return all
}
