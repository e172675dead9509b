package vibrio

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// LogEvent represents one line of server output from a log follower
type LogEvent struct {
	Line string
	Err  error
}

// LogCleanupFunc stops a log follower and releases its resources
type LogCleanupFunc func() error

// followState manages the state of a follow operation
type followState struct {
	mu        sync.Mutex
	partial   []byte
	debouncer *time.Timer
}

// FollowLog tails the server's captured log file, delivering each complete
// line as an event. Lines already in the file are delivered first, then new
// writes as they land, coalesced by a short debounce. It returns
// ErrNoLogFile when the server was started without log capture.
//
// The returned cleanup function must be called to stop following; closing is
// also triggered by ctx cancellation. The event channel is closed on
// cleanup.
func (s *Server) FollowLog(ctx context.Context) (<-chan LogEvent, LogCleanupFunc, error) {
	logPath := s.LogPath()
	if logPath == "" {
		return nil, nil, ErrNoLogFile
	}

	file, err := os.Open(logPath)
	if err != nil {
		return nil, nil, &OpError{Op: OpStatus, Path: logPath, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = file.Close()
		return nil, nil, &OpError{Op: OpStatus, Path: logPath, Err: err}
	}

	if err := watcher.Add(filepath.Dir(logPath)); err != nil {
		_ = watcher.Close()
		_ = file.Close()
		return nil, nil, &OpError{Op: OpStatus, Path: logPath, Err: err}
	}

	ch := make(chan LogEvent, 10)

	// Stopper context manages the follower goroutine's lifecycle
	sctx := stopper.WithContext(ctx)

	sctx.Defer(func() {
		_ = watcher.Close()
		_ = file.Close()
		close(ch)
	})

	state := &followState{}

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond) // Graceful stop with 100ms grace period
		return sctx.Wait()
	}

	// Read newly appended bytes and emit every complete line
	readAndSend := func() {
		if sctx.IsStopping() {
			return
		}

		state.mu.Lock()
		defer state.mu.Unlock()

		for {
			buf := make([]byte, 4096)
			n, err := file.Read(buf)
			if n > 0 {
				state.partial = append(state.partial, buf[:n]...)
			}
			if err != nil {
				if err != io.EOF && !sctx.IsStopping() {
					select {
					case ch <- LogEvent{Err: err}:
					case <-sctx.Stopping():
					}
				}
				break
			}
		}

		for {
			idx := bytes.IndexByte(state.partial, '\n')
			if idx < 0 {
				return
			}
			line := string(bytes.TrimRight(state.partial[:idx], "\r"))
			state.partial = state.partial[idx+1:]

			if sctx.IsStopping() {
				return
			}
			select {
			case ch <- LogEvent{Line: line}:
			case <-sctx.Stopping():
				return
			}
		}
	}

	// Initial read delivers whatever the server wrote before following began
	readAndSend()

	sctx.Go(func(sctx *stopper.Context) error {
		sctx.Defer(func() {
			state.mu.Lock()
			if state.debouncer != nil {
				state.debouncer.Stop()
			}
			state.mu.Unlock()
		})

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}

				if filepath.Base(event.Name) == filepath.Base(logPath) && event.Has(fsnotify.Write) {
					state.mu.Lock()
					if state.debouncer != nil {
						state.debouncer.Stop()
					}
					state.debouncer = time.AfterFunc(DefaultLogDebounce, readAndSend)
					state.mu.Unlock()
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil && !sctx.IsStopping() {
					select {
					case ch <- LogEvent{Err: err}:
					case <-sctx.Stopping():
						return nil
					}
				}
			}
		}
		return nil
	})

	return ch, cleanup, nil
}

// FollowLog tails the managed server's captured log file. See
// Server.FollowLog. It returns ErrServerNotRunning when no server is
// running.
func (l *Lazer) FollowLog(ctx context.Context) (<-chan LogEvent, LogCleanupFunc, error) {
	l.mu.Lock()
	server := l.server
	l.mu.Unlock()

	if server == nil {
		return nil, nil, ErrServerNotRunning
	}
	return server.FollowLog(ctx)
}
