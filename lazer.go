package vibrio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// Lazer is the public handle combining exactly one managed server process
// and one session. Start spawns the server and blocks until it is ready;
// Stop tears both down and is safe to call repeatedly.
//
// Whoever constructs a Lazer owns its teardown: hold it in a scope and defer
// Stop so release is guaranteed on every exit path. There is no global exit
// hook doing it for you.
type Lazer struct {
	// ExecutableDir is the directory holding the platform-specific server
	// executables
	ExecutableDir string

	// Port is the TCP port the server binds. Allocated from the OS at
	// construction unless set with WithPort.
	Port int

	// ProbeInterval is the delay between readiness probe attempts
	ProbeInterval time.Duration

	// StartupTimeout bounds how long Start waits for readiness; zero means
	// no bound beyond the caller's context
	StartupTimeout time.Duration

	// CaptureLog captures the server's output into a temporary file
	CaptureLog bool

	// Logger receives lifecycle diagnostics
	Logger *slog.Logger

	executablePath string

	// mu guards the server/session pair so Start and Stop are exactly-once
	mu      sync.Mutex
	server  *Server
	session *Session
}

// Option configures a Lazer
type Option func(*Lazer)

// WithExecutableDir sets the directory searched for the server executable
func WithExecutableDir(dir string) Option {
	return func(l *Lazer) {
		l.ExecutableDir = dir
	}
}

// WithPort pins the server to a specific port instead of allocating one
func WithPort(port int) Option {
	return func(l *Lazer) {
		l.Port = port
	}
}

// WithProbeInterval sets the delay between readiness probe attempts
func WithProbeInterval(d time.Duration) Option {
	return func(l *Lazer) {
		l.ProbeInterval = d
	}
}

// WithStartupTimeout bounds how long Start waits for the server to become
// ready. Zero disables the bound.
func WithStartupTimeout(d time.Duration) Option {
	return func(l *Lazer) {
		l.StartupTimeout = d
	}
}

// WithLogCapture retains the server's combined stdout/stderr in a temporary
// file for diagnostics
func WithLogCapture() Option {
	return func(l *Lazer) {
		l.CaptureLog = true
	}
}

// WithLogger sets the logger used for lifecycle diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lazer) {
		l.Logger = logger
	}
}

// New creates a Lazer. The executable for the current platform is resolved
// and validated immediately, and a free port is allocated unless one was
// pinned; both failures are construction-time errors, never retried.
func New(opts ...Option) (*Lazer, error) {
	l := &Lazer{
		ExecutableDir:  "lib",
		ProbeInterval:  DefaultProbeInterval,
		StartupTimeout: DefaultStartupTimeout,
		Logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	path, err := ResolveExecutable(l.ExecutableDir)
	if err != nil {
		return nil, err
	}
	l.executablePath = path

	if l.Port == 0 {
		port, err := FindOpenPort()
		if err != nil {
			return nil, err
		}
		l.Port = port
	}

	return l, nil
}

// Running reports whether the server has been started and not yet stopped.
func (l *Lazer) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.server != nil
}

// Addr returns the server's base URL.
func (l *Lazer) Addr() string {
	return fmt.Sprintf("http://localhost:%d", l.Port)
}

// LogPath returns the path of the retained server log, or "" when log
// capture is disabled or the server never started.
func (l *Lazer) LogPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.server == nil {
		return ""
	}
	return l.server.LogPath()
}

// Start spawns the server executable and blocks until it answers its status
// endpoint. Calling Start while the server is running returns
// ErrServerRunning and leaves the original process untouched. If the server
// fails to become ready within the startup window, the spawned process is
// torn down before Start returns.
func (l *Lazer) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return ErrServerRunning
	}

	serverOpts := []ServerOption{WithServerLogger(l.Logger)}
	if l.CaptureLog {
		serverOpts = append(serverOpts, WithCaptureLog())
	}
	server := NewServer(l.executablePath, l.Port, serverOpts...)

	if err := server.Start(); err != nil {
		return err
	}

	session := NewSession(server.Addr())
	if err := blockUntilReady(ctx, session, l.ProbeInterval, l.StartupTimeout); err != nil {
		session.Close()
		_ = server.Stop()
		return err
	}

	l.server = server
	l.session = session
	return nil
}

// Stop closes the session and terminates the server process tree. It is
// idempotent: calling Stop on a stopped (or never started) Lazer is a no-op.
func (l *Lazer) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server == nil {
		return nil
	}

	l.session.Close()
	l.session = nil

	err := l.server.Stop()
	l.server = nil
	return err
}

// currentSession returns the active session or ErrServerNotRunning.
func (l *Lazer) currentSession() (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		return nil, ErrServerNotRunning
	}
	return l.session, nil
}

// HasBeatmap reports whether the given beatmap is cached locally by the
// server.
func (l *Lazer) HasBeatmap(ctx context.Context, beatmapID int) (bool, error) {
	session, err := l.currentSession()
	if err != nil {
		return false, err
	}

	resp, err := session.Get(ctx, fmt.Sprintf("/api/beatmaps/%d/status", beatmapID), nil)
	if err != nil {
		return false, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, serverError(resp)
	}
}

// GetBeatmap fetches a beatmap's file contents, returned as a fresh
// in-memory reader positioned at the start.
func (l *Lazer) GetBeatmap(ctx context.Context, beatmapID int) (*bytes.Reader, error) {
	session, err := l.currentSession()
	if err != nil {
		return nil, err
	}

	resp, err := session.Get(ctx, fmt.Sprintf("/api/beatmaps/%d", beatmapID), nil)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return bytes.NewReader(resp.Body), nil
	case http.StatusNotFound:
		return nil, &NotFoundError{BeatmapID: beatmapID}
	default:
		return nil, serverError(resp)
	}
}

// SaveBeatmap fetches a beatmap and writes it to path atomically, so a
// partially written file is never observed.
func (l *Lazer) SaveBeatmap(ctx context.Context, beatmapID int, path string) error {
	r, err := l.GetBeatmap(ctx, beatmapID)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if err := renameio.WriteFile(path, data, FileMode); err != nil {
		return &OpError{Op: OpGetBeatmap, Path: path, Err: err}
	}
	return nil
}

// ClearCache clears the server's beatmap cache.
func (l *Lazer) ClearCache(ctx context.Context) error {
	session, err := l.currentSession()
	if err != nil {
		return err
	}

	resp, err := session.Delete(ctx, "/api/beatmaps/cache")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}
	return nil
}

// DifficultyRequest describes one difficulty calculation. Exactly one of
// BeatmapID and Beatmap must be set.
type DifficultyRequest struct {
	// BeatmapID identifies a beatmap for the server to fetch
	BeatmapID int
	// Beatmap is raw .osu file contents
	Beatmap io.Reader
	// Mods are applied to the calculation
	Mods []Mod
}

// CalculateDifficulty computes difficulty attributes for a beatmap. The
// request is validated before any network call is made.
func (l *Lazer) CalculateDifficulty(ctx context.Context, req DifficultyRequest) (DifficultyAttributes, error) {
	var attrs DifficultyAttributes

	if (req.BeatmapID > 0) == (req.Beatmap != nil) {
		return attrs, ErrExactlyOneBeatmapSource
	}

	session, err := l.currentSession()
	if err != nil {
		return attrs, err
	}

	query := url.Values{}
	addMods(query, req.Mods)

	var resp *Response
	if req.BeatmapID > 0 {
		resp, err = session.Get(ctx, fmt.Sprintf("/api/difficulty/%d", req.BeatmapID), query)
	} else {
		resp, err = session.Post(ctx, "/api/difficulty", query, File{Field: "beatmap", Content: req.Beatmap})
	}
	if err != nil {
		return attrs, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := resp.JSON(&attrs); err != nil {
			return attrs, &OpError{Op: OpDifficulty, Path: "/api/difficulty", Err: err}
		}
		return attrs, nil
	case resp.StatusCode == http.StatusNotFound && req.BeatmapID > 0:
		return attrs, &NotFoundError{BeatmapID: req.BeatmapID}
	default:
		return attrs, serverError(resp)
	}
}

// PerformanceRequest describes one performance calculation. Exactly one
// beatmap source (BeatmapID, Beatmap, or Difficulty) must be set, combined
// with exactly one score source (HitStats or Replay); a Difficulty source
// only combines with HitStats.
type PerformanceRequest struct {
	// BeatmapID identifies a beatmap for the server to fetch
	BeatmapID int
	// Beatmap is raw .osu file contents
	Beatmap io.Reader
	// Difficulty supplies precomputed difficulty attributes
	Difficulty *DifficultyAttributes
	// HitStats is the play's hit outcome
	HitStats *HitStatistics
	// Replay is raw .osr replay file contents
	Replay io.Reader
	// Mods are applied on the HitStats paths; the Difficulty path carries
	// its own mods
	Mods []Mod
}

// CalculatePerformance computes performance attributes for one play. The
// request is validated against the supported input combinations before any
// network call is made.
func (l *Lazer) CalculatePerformance(ctx context.Context, req PerformanceRequest) (PerformanceAttributes, error) {
	var attrs PerformanceAttributes

	sources := 0
	for _, set := range []bool{req.BeatmapID > 0, req.Beatmap != nil, req.Difficulty != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return attrs, ErrExactlyOneBeatmapSource
	}
	if (req.HitStats != nil) == (req.Replay != nil) {
		return attrs, ErrExactlyOneScoreSource
	}
	if req.Difficulty != nil && req.HitStats == nil {
		return attrs, ErrExactlyOneScoreSource
	}

	session, err := l.currentSession()
	if err != nil {
		return attrs, err
	}

	var resp *Response
	switch {
	case req.BeatmapID > 0 && req.HitStats != nil:
		query := req.HitStats.query()
		addMods(query, req.Mods)
		resp, err = session.Get(ctx, fmt.Sprintf("/api/performance/%d", req.BeatmapID), query)

	case req.BeatmapID > 0:
		resp, err = session.Post(ctx, fmt.Sprintf("/api/performance/replay/%d", req.BeatmapID), nil,
			File{Field: "replay", Content: req.Replay})

	case req.Beatmap != nil && req.HitStats != nil:
		query := req.HitStats.query()
		addMods(query, req.Mods)
		resp, err = session.Post(ctx, "/api/performance", query,
			File{Field: "beatmap", Content: req.Beatmap})

	case req.Beatmap != nil:
		resp, err = session.Post(ctx, "/api/performance/replay", nil,
			File{Field: "beatmap", Content: req.Beatmap},
			File{Field: "replay", Content: req.Replay})

	default:
		query := req.Difficulty.query()
		merge(query, req.HitStats.query())
		resp, err = session.Get(ctx, "/api/performance", query)
	}
	if err != nil {
		return attrs, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := resp.JSON(&attrs); err != nil {
			return attrs, &OpError{Op: OpPerformance, Path: "/api/performance", Err: err}
		}
		return attrs, nil
	case resp.StatusCode == http.StatusNotFound && req.BeatmapID > 0:
		return attrs, &NotFoundError{BeatmapID: req.BeatmapID}
	default:
		return attrs, serverError(resp)
	}
}

func serverError(resp *Response) error {
	return &ServerError{StatusCode: resp.StatusCode, Body: resp.Text()}
}

func merge(dst, src url.Values) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
