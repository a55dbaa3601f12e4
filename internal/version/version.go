// Package version carries build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	// OpenCV reports whether the binary was built with -tags=gocv.
	OpenCV bool `json:"opencv"`
}

// Get returns the build metadata of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitSHA:    GitSHA,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OpenCV:    openCV,
	}
}

func (i Info) String() string {
	backend := "stub"
	if i.OpenCV {
		backend = "opencv"
	}
	return fmt.Sprintf("flowpose %s (%s, built %s, %s, video %s)", i.Version, i.GitSHA, i.BuildTime, i.GoVersion, backend)
}
