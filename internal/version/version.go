// Package version exposes build metadata for the reef binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time via -ldflags, e.g.
//
//	go build -ldflags "-X github.com/coralpages/reef/internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Info is the resolved build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get resolves build metadata, falling back to the module build info
// embedded by the Go toolchain when ldflags were not set.
func Get() Info {
	return Info{
		Version:   resolveVersion(),
		GitCommit: resolveCommit(),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String formats the info as a single human-readable line.
func (i Info) String() string {
	return fmt.Sprintf("reef %s (%s, %s, %s)", i.Version, i.GitCommit, i.GoVersion, i.Platform)
}

func resolveVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}

func resolveCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}
