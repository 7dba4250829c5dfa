//go:build !linux

package poll

import "os"

// ctimeNS is unavailable outside Linux through os.FileInfo; the baseline
// comparison falls back to mtime/size only on these platforms.
func ctimeNS(fi os.FileInfo) int64 {
	return 0
}
