// Package version reports the gt125 build version.
//
// Release builds set the values with ldflags:
//
//	go build -ldflags="-X github.com/sinopehome/gt125/internal/version.Version=v0.3.0 \
//	                   -X github.com/sinopehome/gt125/internal/version.Commit=abc1234" ./cmd/gt125
//
// Otherwise they come from the VCS stamp in the binary's build info, or
// "dev" and "unknown".
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fromSettings(info.Settings)
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func fromSettings(settings []debug.BuildSetting) {
	var revision, vcsTime string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			vcsTime = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if Commit == "" && revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		Commit = revision
		if dirty {
			Commit += "-dirty"
		}
	}
	if Version == "" && vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			Version = "dev-" + t.UTC().Format("20060102")
		}
	}
}

// Full returns the version with its commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent identifies gt125 to HTTP services.
func UserAgent() string {
	return fmt.Sprintf("gt125/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
