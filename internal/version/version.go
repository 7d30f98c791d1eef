// Package version provides build-time version information for launcher and
// launcherd.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Build-time variables. These are set via ldflags during build:
//
//	go build -ldflags "-X launcher/internal/version.Version=1.0.0 \
//	                   -X launcher/internal/version.Commit=abc123 \
//	                   -X launcher/internal/version.BuildTime=2024-01-01T00:00:00Z"
var (
	// Version is the semantic version of the application.
	Version = "0.1.0-dev"

	// Commit is the git commit hash. When not set through ldflags the VCS
	// revision stamped by the go command is used.
	Commit = "unknown"

	// BuildTime is the RFC3339 timestamp of when the binary was built.
	BuildTime = ""
)

// Info contains version information.
type Info struct {
	Version   string    `json:"version" yaml:"version"`
	Commit    string    `json:"commit" yaml:"commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	OS        string    `json:"os" yaml:"os"`
	Arch      string    `json:"arch" yaml:"arch"`
	Modified  bool      `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// Get returns the version information.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildTime = t
		}
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "unknown" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime.IsZero() {
					if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
						info.BuildTime = t
					}
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}

	return info
}

// String returns a human-readable version string.
func (i Info) String() string {
	if i.Commit != "unknown" && len(i.Commit) > 7 {
		return fmt.Sprintf("%s (%s)", i.Version, i.Commit[:7])
	}
	return i.Version
}

// Full returns a detailed version string.
func (i Info) Full() string {
	buildTimeStr := "unknown"
	if !i.BuildTime.IsZero() {
		buildTimeStr = i.BuildTime.Format(time.RFC3339)
	}
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuild Time: %s\nGo Version: %s\nOS/Arch: %s/%s",
		i.Version, i.Commit, buildTimeStr, i.GoVersion, i.OS, i.Arch)
}
