// Package version holds build identification for the cintel binary.
package version

// Version is the semantic version of this build. Release builds override
// it through -ldflags.
var Version = "0.3.0-dev"

// Commit is the VCS revision this binary was built from, if known.
var Commit = ""

// String renders the version with the commit suffix when available.
func String() string {
	if Commit != "" {
		return Version + "+" + Commit
	}
	return Version
}
