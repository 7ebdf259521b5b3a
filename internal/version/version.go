// Package version exposes build metadata for the quarry binary, stamped via
// ldflags by the release build.
package version

//nolint:revive // Overwritten by -ldflags "-X ..." at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
