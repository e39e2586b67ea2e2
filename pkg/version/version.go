// Package version exposes build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	-ldflags "-X github.com/Sumatoshi-tech/codediff/pkg/version.Version=v1.0.0"
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = ""
)

const shortCommitLen = 12

// Resolved returns Version and Commit, filling unstamped values from the
// module build info when the binary was built with go install.
func Resolved() (string, string) {
	ver, commit := Version, Commit

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ver, commit
	}

	if ver == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		ver = info.Main.Version
	}

	if commit == "<unknown>" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				commit = s.Value
			}
		}
	}

	if len(commit) > shortCommitLen {
		commit = commit[:shortCommitLen]
	}

	return ver, commit
}

// String renders the one-line version banner printed by the CLI.
func String() string {
	ver, commit := Resolved()

	out := fmt.Sprintf("codediff %s (commit %s", ver, commit)
	if Date != "" {
		out += ", built " + Date
	}

	return out + ", " + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
