// Package kernel defines the capability interface spec §4.7 calls the
// "kernel backend": an interchangeable driver (originally inotify/dnotify/
// kqueue/mach-notify, selected at compile time via #ifdef) that arms/
// disarms kernel-level watches and converts native notifications into the
// canonical create/delete/change/move event set.
//
// Per spec §9 DESIGN NOTES ("replace compile-time #ifdef backend dispatch
// with a small set of capability structs chosen at runtime"), famd
// collapses the four historical drivers into one Backend interface with
// two real implementations: kernel/fsnotify (wrapping
// github.com/fsnotify/fsnotify, which itself wraps inotify/kqueue/
// ReadDirectoryChangesW per OS) and kernel/pollonly (a no-op, used when
// forced or when fsnotify fails to initialize).
package kernel

// Op is the canonical, backend-independent change kind (spec §4.7:
// "translates native kernel event codes to the canonical set").
type Op uint8

const (
	OpCreate Op = iota
	OpDelete
	OpChange
	OpMove
	// OpAttrib is file-level metadata change.
	OpAttrib
)

// Event is one native notification translated to the canonical op set.
type Event struct {
	Path string
	Op   Op
	// IsDir reports whether Path is known (by the backend) to be a
	// directory; some callers need this to decide dir vs file relativization.
	IsDir bool
}

// Mode is the activation mode passed to DirMode/FileMode, used by the
// polling engine to coordinate hybrid kernel/poll monitoring (spec §4.7).
type Mode int

const (
	Activate Mode = iota
	Deactivate
	FlowControlStart
	FlowControlStop
)

// Backend is the capability struct every kernel driver implements.
type Backend interface {
	// Name identifies the backend for logs and debug requests.
	Name() string

	// AddWatch arms a watch for path (a directory, for directory
	// subscriptions, so that child creates/deletes/renames generate
	// events — spec §4.7). Watches are refcounted per path: multiple
	// AddWatch calls for the same path share one underlying watch.
	AddWatch(path string) error
	// RemoveWatch decrements the refcount for path, dropping the
	// underlying watch at zero.
	RemoveWatch(path string) error

	// DirMode and FileMode let the polling engine coordinate hybrid
	// mode: Activate/Deactivate toggle kernel monitoring outright,
	// FlowControlStart/Stop suspend/resume it for a busy node (spec §4.6).
	DirMode(path string, mode Mode) error
	FileMode(path string, mode Mode) error

	// Events delivers translated native notifications. The server loop
	// does not read this channel: events reach clients only through the
	// polling engine's stat scan, and no Op is mapped to an event code.
	Events() <-chan Event
	// Errors delivers non-fatal backend errors. Nothing in famd reads or
	// logs this channel; it never closes connections.
	Errors() <-chan error
	// Overflow fires when the backend's kernel notification queue
	// overflowed; the poll engine responds by rescanning every node
	// currently armed on this backend on the next tick (spec §4.7).
	Overflow() <-chan struct{}

	// Close releases all watches and backend resources.
	Close() error
}
