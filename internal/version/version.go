package version

import (
	"runtime"
	"time"
)

var (
	Version   = "dev"                           // ex: v0.2.0, injected with -ldflags
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2026-10-19T09:12:00Z
	GoVersion = runtime.Version()               // go version
)

// String renders a one-line build description for `tracker version`.
func String() string {
	return Version + " (commit=" + Commit + ", built=" + BuildDate + ", go=" + GoVersion + ")"
}
