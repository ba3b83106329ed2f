// Package version reports build information for the gameops binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the binary name.
const Name = "gameops"

// Build information, injected with -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// commit returns the injected commit, falling back to the VCS stamp Go embeds.
func commit() string {
	if Commit != "unknown" && Commit != "" {
		return Commit
	}
	info, ok := readBuildInfo()
	if !ok {
		return Commit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return Commit
}

// GetFullVersion returns the full version string.
func GetFullVersion() string {
	return fmt.Sprintf("%s %s (%s) built on %s with %s for %s/%s",
		Name, Version, commit(), Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// GetShortVersion returns just the version number.
func GetShortVersion() string {
	return Version
}
