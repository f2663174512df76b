// Package version holds the CLI version, overridden at build time with
// -ldflags "-X github.com/nimbusdfir/nimbus/pkg/version.Version=...".
package version

var Version = "0.0.1"
