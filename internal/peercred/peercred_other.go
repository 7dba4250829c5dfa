//go:build !linux

package peercred

import "net"

// Credentials is the resolved identity of a Unix-domain-socket peer.
type Credentials struct {
	Pid int
	Uid uint32
	Gid uint32
}

// From is unimplemented on non-Linux platforms; callers fall back to
// trusting the filesystem permissions on the socket path instead (spec
// §4.2 treats SO_PEERCRED as Linux-specific, with owner-only socket
// permissions as the portable fallback, which cmd/famd sets with a chmod
// to 0600 right after binding the socket).
func From(conn net.Conn) (Credentials, error) {
	return Credentials{}, ErrUnsupported
}
