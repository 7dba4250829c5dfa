//go:build linux

// Package peercred resolves the uid/pid of the process on the other end
// of a local socket, used by the connection state machine to enforce
// spec §4.2's same-uid auth rule (a client may only talk to a daemon
// running as the same user). Grounded on
// original_source/server/gam_connection.c's use of SO_PEERCRED, and on
// the teacher's own reliance on golang.org/x/sys/unix for raw syscall
// access (nabbar-golib/go.mod already depends on it).
package peercred

import (
	"net"

	"golang.org/x/sys/unix"
)

// Credentials is the resolved identity of a Unix-domain-socket peer.
type Credentials struct {
	Pid int
	Uid uint32
	Gid uint32
}

// From reads SO_PEERCRED off the underlying file descriptor of a
// *net.UnixConn. Any other net.Conn type returns ErrUnsupported.
func From(conn net.Conn) (Credentials, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return Credentials{}, ErrUnsupported
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return Credentials{}, err
	}

	var cred *unix.Ucred
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		cred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		return Credentials{}, ctrlErr
	}
	if sockErr != nil {
		return Credentials{}, sockErr
	}

	return Credentials{Pid: int(cred.Pid), Uid: cred.Uid, Gid: cred.Gid}, nil
}
