// Package version carries build metadata set through -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata. Release builds override these with
// -ldflags "-X github.com/Sumatoshi-tech/civu/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const revisionLen = 12

// InitBinaryVersion fills unset metadata from the module build info, which
// is present for `go install` builds.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	applyBuildInfo(info)
}

func applyBuildInfo(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = setting.Value[:min(revisionLen, len(setting.Value))]
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String formats the metadata for the version command.
func String() string {
	return fmt.Sprintf("civu %s (commit: %s, built: %s)", Version, Commit, Date)
}
