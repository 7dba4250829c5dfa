//go:build linux

// Package procname resolves a pid to a short process name for debug
// output and logging (spec §4.2's AUTH handshake logs the peer's
// process name alongside its uid/pid). Grounded on
// original_source/server/gam_connection.c's use of /proc/<pid>/cmdline
// on Linux to label a peer in debug output.
package procname

import (
	"fmt"
	"os"
	"strings"
)

// Lookup returns the short command name for pid, or "unknown" if it
// cannot be resolved (the process may have already exited).
func Lookup(pid int) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(data))
}
