package vibrio

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func followerServer(t *testing.T, initial string) (*Server, *os.File) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vibrio-test.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })

	if initial != "" {
		if _, err := f.WriteString(initial); err != nil {
			t.Fatal(err)
		}
	}

	s := &Server{Logger: slog.Default(), logPath: path}
	return s, f
}

func collectLines(events <-chan LogEvent, n int, timeout time.Duration) []string {
	var lines []string
	deadline := time.After(timeout)
	for len(lines) < n {
		select {
		case ev, ok := <-events:
			if !ok {
				return lines
			}
			if ev.Err == nil {
				lines = append(lines, ev.Line)
			}
		case <-deadline:
			return lines
		}
	}
	return lines
}

func TestFollowLogRequiresCapture(t *testing.T) {
	s := &Server{Logger: slog.Default()}
	_, _, err := s.FollowLog(context.Background())
	if !errors.Is(err, ErrNoLogFile) {
		t.Fatalf("err = %v, want ErrNoLogFile", err)
	}
}

func TestFollowLogExistingLines(t *testing.T) {
	s, _ := followerServer(t, "line one\nline two\n")

	events, cleanup, err := s.FollowLog(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cleanup() }()

	lines := collectLines(events, 2, 2*time.Second)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}
	if lines[0] != "line one" || lines[1] != "line two" {
		t.Errorf("lines = %v", lines)
	}
}

func TestFollowLogAppendedLines(t *testing.T) {
	s, f := followerServer(t, "")

	events, cleanup, err := s.FollowLog(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cleanup() }()

	if _, err := f.WriteString("first\n"); err != nil {
		t.Fatal(err)
	}
	if err := f.Sync(); err != nil {
		t.Fatal(err)
	}

	lines := collectLines(events, 1, 2*time.Second)
	if len(lines) != 1 || lines[0] != "first" {
		t.Fatalf("lines = %v, want [first]", lines)
	}

	// A partial write is held back until its newline arrives.
	if _, err := f.WriteString("sec"); err != nil {
		t.Fatal(err)
	}
	if err := f.Sync(); err != nil {
		t.Fatal(err)
	}
	if extra := collectLines(events, 1, 200*time.Millisecond); len(extra) != 0 {
		t.Fatalf("partial line delivered early: %v", extra)
	}

	if _, err := f.WriteString("ond\n"); err != nil {
		t.Fatal(err)
	}
	if err := f.Sync(); err != nil {
		t.Fatal(err)
	}
	lines = collectLines(events, 1, 2*time.Second)
	if len(lines) != 1 || lines[0] != "second" {
		t.Fatalf("lines = %v, want [second]", lines)
	}
}

func TestFollowLogCleanupClosesChannel(t *testing.T) {
	s, _ := followerServer(t, "one\n")

	events, cleanup, err := s.FollowLog(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	collectLines(events, 1, 2*time.Second)

	if err := cleanup(); err != nil {
		t.Fatal(err)
	}

	select {
	case _, ok := <-events:
		if ok {
			// Drain any event raced in before shutdown.
			for range events {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event channel not closed after cleanup")
	}
}
