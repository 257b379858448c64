// Package version exposes build metadata embedded at compile time.
//
// The variables are set via -ldflags, e.g.:
//
//	go build -ldflags "-X github.com/skillsenselab/voiceclip/version.Version=1.2.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the build. "dev" for local builds.
	Version = "dev"
	// GitCommit is the short commit hash the binary was built from.
	GitCommit = ""
	// BuildTime is the build timestamp in RFC 3339.
	BuildTime = ""
)

// Info is the structured form of the build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the build metadata for this binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String renders the version in a single human readable line.
func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		s = fmt.Sprintf("%s (%s)", s, i.GitCommit)
	}
	return s
}
