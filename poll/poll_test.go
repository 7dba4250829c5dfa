package poll_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/famd/poll"
	"github.com/nabbar/famd/protocol"
	"github.com/nabbar/famd/tree"
)

type recordingSub struct {
	reqno  uint16
	isDir  bool
	events []protocol.EventCode
	paths  []string
}

func (s *recordingSub) Reqno() uint16    { return s.reqno }
func (s *recordingSub) IsDirSub() bool   { return s.isDir }
func (s *recordingSub) Emit(code protocol.EventCode, path string) {
	s.events = append(s.events, code)
	s.paths = append(s.paths, path)
}

func TestTickDetectsCreateChangeDelete(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "watched.txt")

	tr := tree.New()
	node := tr.AddAtPath(file, false)
	sub := &recordingSub{reqno: 1}
	node.AddSub(sub)

	e := poll.NewEngine(tr, nil, nil, nil)

	// does not exist yet.
	e.Tick(time.Unix(0, 0))
	assert.Empty(t, sub.events)

	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))
	e.Tick(time.Unix(1, 0))
	require.Len(t, sub.events, 1)
	assert.Equal(t, protocol.EventCreated, sub.events[0])

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte("ab"), 0o644))
	e.Tick(time.Unix(2, 0))
	require.Len(t, sub.events, 2)
	assert.Equal(t, protocol.EventChanged, sub.events[1])

	require.NoError(t, os.Remove(file))
	e.Tick(time.Unix(3, 0))
	require.Len(t, sub.events, 3)
	assert.Equal(t, protocol.EventDeleted, sub.events[2])
}

func TestTickDispatchesDirSubWithBasename(t *testing.T) {
	dir := t.TempDir()

	tr := tree.New()
	dirNode := tr.AddAtPath(dir, true)
	sub := &recordingSub{reqno: 2, isDir: true}
	dirNode.AddSub(sub)

	e := poll.NewEngine(tr, nil, nil, nil)
	e.Tick(time.Unix(0, 0))

	child := filepath.Join(dir, "child.txt")
	require.NoError(t, os.WriteFile(child, []byte("x"), 0o644))
	tr.AddAtPath(child, false)

	e.Tick(time.Unix(1, 0))

	found := false
	for i, p := range sub.paths {
		if p == "child.txt" && sub.events[i] == protocol.EventCreated {
			found = true
			break
		}
	}
	assert.True(t, found, "expected a Created event for child.txt, got %v / %v", sub.events, sub.paths)
}

func TestFlowControlPromotesAfterFourConsecutiveChanges(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hot.txt")
	require.NoError(t, os.WriteFile(file, []byte("0"), 0o644))

	tr := tree.New()
	node := tr.AddAtPath(file, false)

	e := poll.NewEngine(tr, nil, nil, nil)
	e.Tick(time.Unix(0, 0))

	for i := 1; i <= 4; i++ {
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, os.WriteFile(file, []byte{byte('0' + i)}, 0o644))
		e.Tick(time.Unix(int64(i), 0))
	}

	assert.True(t, node.HasFlag(tree.Busy))
}

func TestInitialEnumerationListsDirectoryEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))

	tr := tree.New()
	node := tr.AddAtPath(dir, true)

	e := poll.NewEngine(tr, nil, nil, nil)
	sub := &recordingSub{reqno: 3, isDir: true}

	e.InitialEnumeration(sub, node, false)

	require.Len(t, sub.events, 4)
	assert.Equal(t, []protocol.EventCode{
		protocol.EventExists, protocol.EventExists, protocol.EventExists, protocol.EventEndExist,
	}, sub.events)
	assert.Equal(t, []string{dir, "a.txt", "b.txt", dir}, sub.paths)
}

func TestInitialEnumerationMissingPathEmitsDeletedOnly(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "gone.txt")

	tr := tree.New()
	node := tr.AddAtPath(missing, false)

	e := poll.NewEngine(tr, nil, nil, nil)
	sub := &recordingSub{reqno: 5}

	e.InitialEnumeration(sub, node, false)

	assert.Equal(t, []protocol.EventCode{protocol.EventDeleted}, sub.events)
	assert.Equal(t, []string{missing}, sub.paths)
	assert.True(t, node.HasFlag(tree.Missing))
}

func TestInitialEnumerationWrongTypeEmitsDeletedThenEndExist(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notadir.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tr := tree.New()
	node := tr.AddAtPath(file, true)
	node.SetFlag(tree.WrongType)

	e := poll.NewEngine(tr, nil, nil, nil)
	sub := &recordingSub{reqno: 6, isDir: true}

	e.InitialEnumeration(sub, node, false)

	assert.Equal(t, []protocol.EventCode{protocol.EventDeleted, protocol.EventEndExist}, sub.events)
	assert.Equal(t, []string{file, file}, sub.paths)
}

func TestInitialEnumerationSuppressedByNoExists(t *testing.T) {
	dir := t.TempDir()
	tr := tree.New()
	node := tr.AddAtPath(dir, true)

	e := poll.NewEngine(tr, nil, nil, nil)
	sub := &recordingSub{reqno: 4, isDir: true}

	e.InitialEnumeration(sub, node, true)

	assert.Empty(t, sub.events)
}
