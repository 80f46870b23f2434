// Package version holds build-time metadata for the otcore binaries,
// populated via -ldflags at build time.
package version

import "fmt"

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Print renders a one-line "name, version X, commit Y, built Z" string for
// program, printed at CLI startup.
func Print(program string) string {
	return fmt.Sprintf("%s, version %s, commit %s, built %s", program, Version, Commit, BuildDate)
}
