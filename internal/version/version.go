// Package version holds build identification, overridable with
// -ldflags "-X github.com/keshon/server-relay/internal/version.Version=...".
package version

import (
	"runtime"
	"strings"
)

var (
	AppName        = "server-relay"
	AppDescription = "Loads slash commands from manifests, publishes them to Discord and routes interactions to their handlers."
	Version        = "dev"
)

// GoVersion is the toolchain the binary was built with, without the "go" prefix.
func GoVersion() string { return strings.TrimPrefix(runtime.Version(), "go") }

// String returns "name version".
func String() string { return AppName + " " + Version }
