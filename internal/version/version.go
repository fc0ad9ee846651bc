// Package version holds build identification injected at link time via
// -ldflags "-X github.com/aatumaykin/hostkeeper/internal/version.Version=...".
package version

import "fmt"

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// Baseline returns the version recorded in a fresh update state, before any
// self-update has ever installed anything.
func Baseline() string {
	return Version
}

func FormatStartupMessage() string {
	return fmt.Sprintf("hostkeeper started\nversion: %s\nbuild: %s", Version, BuildTime)
}
