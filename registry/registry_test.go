package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/famd/event"
	"github.com/nabbar/famd/listener"
	"github.com/nabbar/famd/poll"
	"github.com/nabbar/famd/protocol"
	"github.com/nabbar/famd/registry"
	"github.com/nabbar/famd/tree"
)

type recordingSink struct {
	events []event.Event
}

func (s *recordingSink) Enqueue(ev event.Event) { s.events = append(s.events, ev) }

func newListener() (*listener.Listener, *recordingSink) {
	sink := &recordingSink{}
	return listener.New(1234, "test", sink), sink
}

func TestAddRejectsDuplicateReqno(t *testing.T) {
	dir := t.TempDir()
	tr := tree.New()
	reg := registry.New(tr, poll.NewEngine(tr, nil, nil, nil))

	l, _ := newListener()

	_, ok := reg.Add(l, 1, filepath.Join(dir, "a.txt"), false, 0, nil)
	require.True(t, ok)

	_, ok = reg.Add(l, 1, filepath.Join(dir, "b.txt"), false, 0, nil)
	assert.False(t, ok)
}

func TestAddFiresInitialEnumeration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o644))

	tr := tree.New()
	reg := registry.New(tr, poll.NewEngine(tr, nil, nil, nil))

	l, sink := newListener()
	_, ok := reg.Add(l, 1, dir, true, 0, nil)
	require.True(t, ok)

	require.NotEmpty(t, sink.events)
	last := sink.events[len(sink.events)-1]
	assert.Equal(t, protocol.EventEndExist, last.Code)
}

func TestAddSuppressesEnumerationWithNoExists(t *testing.T) {
	dir := t.TempDir()
	tr := tree.New()
	reg := registry.New(tr, poll.NewEngine(tr, nil, nil, nil))

	l, sink := newListener()
	_, ok := reg.Add(l, 1, dir, true, protocol.OptNoExists, nil)
	require.True(t, ok)
	assert.Empty(t, sink.events)
}

func TestCancelEmitsAcknowledgeAndPrunes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tr := tree.New()
	reg := registry.New(tr, poll.NewEngine(tr, nil, nil, nil))

	l, sink := newListener()
	sub, ok := reg.Add(l, 7, file, false, protocol.OptNoExists, nil)
	require.True(t, ok)
	require.NotNil(t, sub)

	ok = reg.Cancel(l, 7)
	require.True(t, ok)

	require.Len(t, sink.events, 1)
	assert.Equal(t, protocol.EventAcknowledge, sink.events[0].Code)
	assert.Nil(t, l.GetSubscriptionByReqno(7))

	// the whole subtree should have been pruned away, nothing left but root.
	assert.Equal(t, 1, tr.Size())
}

func TestCancelAfterCancelEmitsNothingFurther(t *testing.T) {
	dir := t.TempDir()
	tr := tree.New()
	reg := registry.New(tr, poll.NewEngine(tr, nil, nil, nil))

	l, _ := newListener()
	_, ok := reg.Add(l, 3, dir, true, protocol.OptNoExists, nil)
	require.True(t, ok)

	assert.True(t, reg.Cancel(l, 3))
	assert.False(t, reg.Cancel(l, 3))
}

func TestRemoveAllForDetachesWithoutAcknowledge(t *testing.T) {
	dir := t.TempDir()
	tr := tree.New()
	reg := registry.New(tr, poll.NewEngine(tr, nil, nil, nil))

	l, sink := newListener()
	_, ok := reg.Add(l, 1, filepath.Join(dir, "a.txt"), false, protocol.OptNoExists, nil)
	require.True(t, ok)
	_, ok = reg.Add(l, 2, filepath.Join(dir, "b.txt"), false, protocol.OptNoExists, nil)
	require.True(t, ok)

	reg.RemoveAllFor(l)

	assert.Empty(t, l.Subscriptions())
	assert.Empty(t, sink.events)
}
