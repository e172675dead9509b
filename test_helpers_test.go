package vibrio

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/renameio/v2"
)

// newTestServer starts an httptest server closed with the test and returns
// its base URL.
func newTestServer(t *testing.T, handler http.Handler) string {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts.URL
}

// writeFakeExecutable writes a shell script named like the real server
// executable for the current platform, so ResolveExecutable and Server can
// run against it. Tests that need it skip on platforms without a published
// suffix or without /bin/sh.
func writeFakeExecutable(t *testing.T, dir, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake executables are shell scripts")
	}
	suffix, ok := executableSuffix[[2]string{runtime.GOOS, runtime.GOARCH}]
	if !ok {
		t.Skipf("no executable suffix for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s", ExecutableName, suffix))
	if err := renameio.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
