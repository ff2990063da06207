package objectdb

import (
	"fmt"
	"time"

	// Pure Go driver, registered as "sqlite".
	_ "modernc.org/sqlite"
	// cgo driver, registered as "sqlite3".
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverPure selects modernc.org/sqlite.
	DriverPure = "sqlite"
	// DriverCgo selects github.com/mattn/go-sqlite3.
	DriverCgo = "sqlite3"
)

// dsn carries the busy timeout in the connection string so it already
// applies while the driver sets the connection up.
func dsn(driver, path string, busy time.Duration) string {
	ms := busy.Milliseconds()
	switch driver {
	case DriverCgo:
		return fmt.Sprintf("%s?_busy_timeout=%d", path, ms)
	default:
		return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, ms)
	}
}
