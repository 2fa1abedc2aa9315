// Package version carries build identification, injected via ldflags.
package version

import "fmt"

var (
	// Version is the semantic version, or "dev" for local builds.
	Version = "dev"

	// Commit is the git commit hash the binary was built from.
	Commit = ""

	// Date is the build timestamp.
	Date = ""
)

// String returns the human-readable version line.
func String() string {
	s := Version
	if Commit != "" {
		s = fmt.Sprintf("%s (%s)", s, ShortCommit(Commit))
	}
	if Date != "" {
		s += " built " + Date
	}
	return s
}

// ShortCommit truncates a commit hash to 12 characters for display.
func ShortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
