// Package version reports the build version of commutesim.
package version

import (
	"runtime/debug"

	"github.com/Masterminds/semver/v3"
)

// Set at build time with -ldflags "-X github.com/rshade/commutesim/pkg/version.version=...".
//
//nolint:gochecknoglobals // Overridden by the linker.
var (
	version   = "0.0.0-dev"
	gitCommit = ""
	buildDate = ""
)

// GetVersion returns the semantic version of the build.
func GetVersion() string {
	if version == "0.0.0-dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return version
}

// GetGitCommit returns the commit the binary was built from, if known.
func GetGitCommit() string {
	if gitCommit != "" {
		return gitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return ""
}

// GetBuildDate returns the build timestamp, if set.
func GetBuildDate() string { return buildDate }

// IsRelease reports whether the version is a valid semantic version without
// a prerelease suffix.
func IsRelease() bool {
	v, err := semver.NewVersion(GetVersion())
	if err != nil {
		return false
	}
	return v.Prerelease() == ""
}
