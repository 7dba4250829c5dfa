package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/famd/event"
	"github.com/nabbar/famd/protocol"
	"github.com/nabbar/famd/queue"
)

type recorder struct {
	written []event.Event
	failAt  int
}

func (r *recorder) WriteEvent(ev event.Event) error {
	r.written = append(r.written, ev)
	return nil
}

func TestEnqueueCoalescesTail(t *testing.T) {
	q := queue.New()
	ev := event.Event{Reqno: 1, Code: protocol.EventChanged, Path: "/a"}
	q.Enqueue(ev)
	q.Enqueue(ev)
	q.Enqueue(ev)
	assert.Equal(t, 1, q.Len())

	q.Enqueue(event.Event{Reqno: 1, Code: protocol.EventChanged, Path: "/b"})
	assert.Equal(t, 2, q.Len())
}

func TestFlushWritesInOrderAndEmpties(t *testing.T) {
	q := queue.New()
	q.Enqueue(event.Event{Reqno: 1, Code: protocol.EventCreated, Path: "/a"})
	q.Enqueue(event.Event{Reqno: 1, Code: protocol.EventChanged, Path: "/b"})

	r := &recorder{}
	n, err := q.Flush(r)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, "/a", r.written[0].Path)
	assert.Equal(t, "/b", r.written[1].Path)
}

func TestDrainEmptiesWithoutWriting(t *testing.T) {
	q := queue.New()
	q.Enqueue(event.Event{Reqno: 1, Code: protocol.EventDeleted, Path: "/a"})
	q.Drain()
	assert.Equal(t, 0, q.Len())
}
