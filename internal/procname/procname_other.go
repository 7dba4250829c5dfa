//go:build !linux

package procname

// Lookup is not implemented outside Linux; famd still functions, just
// without a friendly name in debug/log output.
func Lookup(pid int) string {
	return "unknown"
}
