package buildconfig

import "runtime"

// Set with -ldflags "-X github.com/Harshitk-cp/vocabtest/internal/buildconfig.version=..."
var (
	version = "dev"
	commit  = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

func Version() string {
	return version
}

func Commit() string {
	return commit
}

func Current() Info {
	return Info{Version: version, Commit: commit, GoVersion: runtime.Version()}
}
