//go:build linux

package fs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// linuxFSTypes maps the f_type magic numbers statfs(2) returns on Linux to
// the names gaminrc's `fsset` directives use. Not exhaustive; unknown
// magics fall back to a hex string so they can still be whitelisted.
var linuxFSTypes = map[int64]string{
	0x6969:     "nfs",
	0x01021994: "tmpfs",
	0x858458f6: "ramfs",
	0x9123683E: "btrfs",
	0xEF53:     "ext4",
	0x5346544e: "ntfs",
	0x65735546: "fuse",
	0x517b:     "smb",
}

// TypeName returns the filesystem type name backing path, used to look up
// the per-filesystem Policy (spec §6 `fsset` directives).
func TypeName(path string) (string, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return "", err
	}
	if name, ok := linuxFSTypes[int64(st.Type)]; ok {
		return name, nil
	}
	return fmt.Sprintf("0x%x", int64(st.Type)), nil
}
