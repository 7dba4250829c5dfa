// Package queue implements the per-connection event queue of spec §4.8: a
// FIFO of (reqno, code, path) with tail-only coalescing and a periodic
// flush. Grounded on original_source/server/gam_eq.c.
package queue

import (
	"github.com/nabbar/famd/event"
)

// Writer delivers one event as a packet on the wire. The connection
// implements this; Queue never touches the socket directly.
type Writer interface {
	WriteEvent(ev event.Event) error
}

// Queue is a FIFO that coalesces a newly queued event into the tail entry
// when all four fields (reqno, code, path, and path length, which is
// implied by path equality) match exactly, and otherwise appends.
type Queue struct {
	items []event.Event
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends ev, dropping it instead if it is identical to the
// current tail (spec §4.8: "tail-coalescing only; deeper coalescing is not
// performed").
func (q *Queue) Enqueue(ev event.Event) {
	if n := len(q.items); n > 0 {
		t := q.items[n-1]
		if t.Reqno == ev.Reqno && t.Code == ev.Code && t.Path == ev.Path {
			return
		}
	}
	q.items = append(q.items, ev)
}

// Len reports the number of queued, not-yet-flushed events.
func (q *Queue) Len() int { return len(q.items) }

// Flush writes every queued event, in order, through w and empties the
// queue. It returns the number of events written and stops at the first
// write error, leaving the unwritten remainder queued (mirrors gam_eq.c's
// flush loop, which is best-effort per connection and relies on the
// connection being closed on any write failure per spec §4.2).
func (q *Queue) Flush(w Writer) (int, error) {
	n := 0
	for len(q.items) > 0 {
		ev := q.items[0]
		if err := w.WriteEvent(ev); err != nil {
			return n, err
		}
		q.items = q.items[1:]
		n++
	}
	return n, nil
}

// Drain empties the queue without writing anything, used on connection
// close after a final flush attempt (spec §4.2, §4.8).
func (q *Queue) Drain() {
	q.items = nil
}
