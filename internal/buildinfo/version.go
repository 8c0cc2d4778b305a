// Package buildinfo reports the provision version from Go build metadata.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// version is set at release time:
//
//	go build -ldflags "-X github.com/tsukumogami/provision/internal/buildinfo.version=v1.2.0"
var version string

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Version returns the release version. Without one it falls back to the
// module version, then to "dev-<commit>" with a "-dirty" suffix for
// modified trees, then to "dev".
func Version() string {
	if version != "" {
		return version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "unknown"
	}
	return fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) string {
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	commit, dirty := vcsState(info.Settings)
	if commit == "" {
		return "dev"
	}
	var b strings.Builder
	b.WriteString("dev-")
	b.WriteString(commit)
	if dirty {
		b.WriteString("-dirty")
	}
	return b.String()
}

// vcsState returns the abbreviated revision and whether the tree was modified.
func vcsState(settings []debug.BuildSetting) (commit string, dirty bool) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return commit, dirty
}

// UserAgent is the User-Agent header sent with download and API requests.
func UserAgent() string {
	return "provision/" + Version()
}
