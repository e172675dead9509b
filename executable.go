package vibrio

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// executableSuffix maps a GOOS/GOARCH pair to the suffix of the published
// server executable for that platform. New platforms are supported by adding
// entries here.
var executableSuffix = map[[2]string]string{
	{"windows", "amd64"}: "win-x64.exe",
	{"windows", "arm64"}: "win-arm64.exe",
	{"linux", "amd64"}:   "linux-x64",
	{"linux", "arm64"}:   "linux-arm64",
	{"darwin", "amd64"}:  "osx-x64",
	{"darwin", "arm64"}:  "osx-arm64",
}

// ResolveExecutable determines the path to the server executable for the
// current platform inside dir, verifies the file exists, and ensures its
// executable bit is set (a no-op on Windows). It returns the absolute path.
func ResolveExecutable(dir string) (string, error) {
	return resolveExecutable(dir, runtime.GOOS, runtime.GOARCH)
}

func resolveExecutable(dir, goos, goarch string) (string, error) {
	suffix, ok := executableSuffix[[2]string{goos, goarch}]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}

	path, err := filepath.Abs(filepath.Join(dir, fmt.Sprintf("%s-%s", ExecutableName, suffix)))
	if err != nil {
		return "", fmt.Errorf("resolving executable path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", &OpError{Op: OpSpawn, Path: path, Err: err}
	}

	if goos != "windows" && info.Mode()&0o111 == 0 {
		if err := os.Chmod(path, info.Mode()|0o111); err != nil {
			return "", &OpError{Op: OpSpawn, Path: path, Err: err}
		}
	}

	return path, nil
}
