// Package version provides build and version information for the control room host.
package version

// Version is the current release version of the control room host.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/strandcast/controlroom/internal/version.Version=x.y.z"
var Version = "1.0.0"
