// Package version holds build metadata stamped in by the linker.
package version

import (
	"runtime/debug"
	"strings"
)

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/pubgate/internal/version.Version=v0.3.0".
var Version = "unknown"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version for --version. When the commit was not stamped
// it falls back to the VCS revision recorded by the Go toolchain.
func String() string {
	commit := GitCommit
	if commit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					commit = s.Value
				}
			}
		}
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}

	var b strings.Builder
	b.WriteString(Version)
	if commit != "unknown" {
		b.WriteString(" (" + commit + ")")
	}
	if BuildTime != "unknown" {
		b.WriteString(" built " + BuildTime)
	}
	return b.String()
}
