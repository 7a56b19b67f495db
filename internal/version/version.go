// Package version holds build metadata stamped via -ldflags -X.
package version

var (
	// Version is the semantic version or branch name of this build.
	Version = "dev"
	// Commit is the short git revision of this build.
	Commit = "none"
)
