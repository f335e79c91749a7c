// Package version holds build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns the version line printed at startup.
func String() string {
	return fmt.Sprintf("blacklab %s (commit %s, built %s)", Version, Commit, Date)
}
