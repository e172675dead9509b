package vibrio

// Version is the current version of the go-vibrio library
const Version = "1.0.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// APIBase is the server API prefix this library speaks
	APIBase string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version: Version,
		APIBase: "/api",
	}
}
