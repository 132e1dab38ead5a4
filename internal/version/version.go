// Package version holds the build-time version string, overridden via
// `-ldflags "-X github.com/griffithind/dockertree/internal/version.Version=..."`
// at release build time.
package version

// Version is the dockertree release version. Recorded in package
// metadata.json (spec §4.9) so a package's producing tool version is
// always known at import time.
var Version = "dev"
