// Package version provides version information.
package version

import "runtime/debug"

// Version is set at build time via -ldflags "-X github.com/bimcvcovid19i/relman/internal/version.Version=<value>"
var Version = ""

// String returns Version, or the module version recorded by the Go
// toolchain when relman was installed with go install, or "dev".
func String() string {
	if Version != "" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}
