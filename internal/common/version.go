package common

import "fmt"

// Build metadata, stamped via -ldflags:
//
//	-X github.com/ternarybob/cogsim/internal/common.Version=1.2.3
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the semantic version string.
func GetVersion() string { return Version }

// GetBuild returns the build timestamp.
func GetBuild() string { return Build }

// GetGitCommit returns the git commit hash.
func GetGitCommit() string { return GitCommit }

// GetFullVersion returns the version with build metadata attached.
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}
