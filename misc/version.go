// Package misc keeps small helpers needed across the program - build
// identification mostly.
package misc

import (
	"runtime/debug"
)

const appName = "epc"

var (
	// LastGitCommit is set by the linker during the build.
	LastGitCommit string
	// AppVersion is set by the linker during the build.
	AppVersion string
)

// GetAppName returns short program name to be used in logs, temporary file
// names and similar places.
func GetAppName() string {
	return appName
}

// GetVersion returns program version, either set during the build or derived
// from the module information.
func GetVersion() string {
	if len(AppVersion) != 0 {
		return AppVersion
	}
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) != 0 {
		return bi.Main.Version
	}
	return "unknown"
}

// GetGitHash returns hash of the git commit program was built from when
// available.
func GetGitHash() string {
	if len(LastGitCommit) != 0 {
		return LastGitCommit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
