// Package pollonly implements kernel.Backend as a no-op, used when the
// real kernel backend could not be initialized or when famd is started
// with --pollonly (spec §4.7: "pollonly forces every node through the
// polling engine, never arming a kernel watch").
package pollonly

import "github.com/nabbar/famd/kernel"

// Backend satisfies kernel.Backend without ever arming a kernel watch.
// Its Events/Errors/Overflow channels are never written to; every node
// using it is driven entirely by the polling engine's stat loop.
type Backend struct {
	events   chan kernel.Event
	errs     chan error
	overflow chan struct{}
}

// New returns a Backend whose channels never deliver anything.
func New() *Backend {
	return &Backend{
		events:   make(chan kernel.Event),
		errs:     make(chan error),
		overflow: make(chan struct{}),
	}
}

func (b *Backend) Name() string { return "pollonly" }

func (b *Backend) AddWatch(string) error    { return nil }
func (b *Backend) RemoveWatch(string) error { return nil }

func (b *Backend) DirMode(string, kernel.Mode) error  { return nil }
func (b *Backend) FileMode(string, kernel.Mode) error { return nil }

func (b *Backend) Events() <-chan kernel.Event { return b.events }
func (b *Backend) Errors() <-chan error        { return b.errs }
func (b *Backend) Overflow() <-chan struct{}   { return b.overflow }

func (b *Backend) Close() error { return nil }

var _ kernel.Backend = (*Backend)(nil)
