package version

import (
	"runtime/debug"
	"strings"
)

// Set at build time with -ldflags "-X github.com/jshclinic/aichart/internal/version.Version=...".
var (
	Version = "0.3.0"
	Commit  = ""
)

// Resolve returns Version, suffixed with the short VCS revision when one is
// known from ldflags or the embedded build info.
func Resolve() string {
	return resolveVersion(Version, Commit, readBuildInfo)
}

func resolveVersion(base, commit string, info func() (*debug.BuildInfo, bool)) string {
	base = strings.TrimPrefix(strings.TrimSpace(base), "v")
	if base == "" {
		base = "0.0.0"
	}

	revision, modified := strings.TrimSpace(commit), false
	if revision == "" && info != nil {
		revision, modified = vcsRevision(info)
	}
	if revision == "" {
		return base
	}

	if len(revision) > 7 {
		revision = revision[:7]
	}
	if modified {
		revision += "-dirty"
	}
	return base + "+" + revision
}

func vcsRevision(info func() (*debug.BuildInfo, bool)) (string, bool) {
	bi, ok := info()
	if !ok || bi == nil {
		return "", false
	}

	var revision string
	var modified bool
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, modified
}

func readBuildInfo() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
