// Package buildinfo exposes the version metadata stamped into the
// binary at link time.
package buildinfo

import (
	"fmt"
	"runtime"
	"time"
)

// Overridden with -ldflags "-X ..." by the release build; the defaults
// identify an untagged development build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var startTime = time.Now()

// Info collects build and runtime details for the version endpoint.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     Uptime().String(),
	}
}

// Uptime reports how long the process has been running, truncated to
// whole seconds.
func Uptime() time.Duration {
	return time.Since(startTime).Truncate(time.Second)
}

// String is the one-line banner logged at startup.
func String() string {
	return fmt.Sprintf("Aide %s (%s) built %s", Version, GitCommit, BuildTime)
}

// UserAgent identifies this binary on outbound HTTP requests.
func UserAgent() string {
	return fmt.Sprintf("aide/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}
