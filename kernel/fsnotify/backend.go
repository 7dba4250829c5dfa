// Package fsnotify adapts github.com/fsnotify/fsnotify (itself a wrapper
// over inotify/kqueue/ReadDirectoryChangesW) to the kernel.Backend
// capability interface. This is the real kernel-backed driver; famd's
// hybrid monitoring falls back to kernel/pollonly when this backend
// cannot be initialized (spec §4.7, §9 DESIGN NOTES).
package fsnotify

import (
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nabbar/famd/kernel"
)

// Backend wraps an *fsnotify.Watcher, adding per-path watch refcounting
// (spec §4.7: "multiple subscriptions against the same directory share one
// kernel watch") and translating fsnotify.Event into kernel.Event.
type Backend struct {
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	refs  map[string]int

	events   chan kernel.Event
	errs     chan error
	overflow chan struct{}
	done     chan struct{}
}

// New starts a Backend backed by a freshly-opened fsnotify.Watcher.
func New() (*Backend, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	b := &Backend{
		watcher:  w,
		refs:     map[string]int{},
		events:   make(chan kernel.Event, 64),
		errs:     make(chan error, 8),
		overflow: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go b.pump()
	return b, nil
}

func (b *Backend) Name() string { return "fsnotify" }

func (b *Backend) pump() {
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.translate(ev)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			if isOverflow(err) {
				select {
				case b.overflow <- struct{}{}:
				default:
				}
				continue
			}
			select {
			case b.errs <- err:
			default:
			}
		case <-b.done:
			return
		}
	}
}

// isOverflow reports whether err signals a kernel notification queue
// overflow (e.g. inotify's IN_Q_OVERFLOW surfaces from fsnotify as an
// error mentioning the condition, or ENOSPC on watch-limit exhaustion
// that effectively means "stop trusting incremental events").
func isOverflow(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overflow") || strings.Contains(msg, "no space left")
}

func (b *Backend) translate(ev fsnotify.Event) {
	var op kernel.Op
	switch {
	case ev.Has(fsnotify.Create):
		op = kernel.OpCreate
	case ev.Has(fsnotify.Remove):
		op = kernel.OpDelete
	case ev.Has(fsnotify.Rename):
		op = kernel.OpMove
	case ev.Has(fsnotify.Write):
		op = kernel.OpChange
	case ev.Has(fsnotify.Chmod):
		op = kernel.OpAttrib
	default:
		return
	}
	select {
	case b.events <- kernel.Event{Path: ev.Name, Op: op}:
	default:
		// consumer too slow; treat as overflow rather than block the pump.
		select {
		case b.overflow <- struct{}{}:
		default:
		}
	}
}

func (b *Backend) AddWatch(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs[path] > 0 {
		b.refs[path]++
		return nil
	}
	if err := b.watcher.Add(path); err != nil {
		return err
	}
	b.refs[path] = 1
	return nil
}

func (b *Backend) RemoveWatch(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.refs[path]
	if !ok {
		return nil
	}
	if n > 1 {
		b.refs[path] = n - 1
		return nil
	}
	delete(b.refs, path)
	return b.watcher.Remove(path)
}

// DirMode and FileMode map every mode onto the refcounted watch, since
// the fsnotify watcher has no per-path suspension of its own: Deactivate
// and FlowControlStart drop one reference via RemoveWatch, Activate and
// FlowControlStop add one via AddWatch. FileMode behaves exactly like
// DirMode.
func (b *Backend) DirMode(path string, mode kernel.Mode) error {
	switch mode {
	case kernel.Deactivate, kernel.FlowControlStart:
		return b.RemoveWatch(path)
	case kernel.Activate, kernel.FlowControlStop:
		return b.AddWatch(path)
	}
	return nil
}

func (b *Backend) FileMode(path string, mode kernel.Mode) error {
	return b.DirMode(path, mode)
}

func (b *Backend) Events() <-chan kernel.Event   { return b.events }
func (b *Backend) Errors() <-chan error          { return b.errs }
func (b *Backend) Overflow() <-chan struct{}     { return b.overflow }

func (b *Backend) Close() error {
	close(b.done)
	return b.watcher.Close()
}

var _ kernel.Backend = (*Backend)(nil)
