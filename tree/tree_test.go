package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/famd/protocol"
	"github.com/nabbar/famd/tree"
)

type fakeSub struct {
	reqno uint16
	dir   bool
}

func (f *fakeSub) Reqno() uint16      { return f.reqno }
func (f *fakeSub) IsDirSub() bool     { return f.dir }
func (f *fakeSub) Emit(protocol.EventCode, string) {}

func TestAddAtPathCreatesAncestors(t *testing.T) {
	tr := tree.New()
	n := tr.AddAtPath("/tmp/foo/bar", false)
	require.NotNil(t, n)
	assert.Equal(t, "/tmp/foo/bar", n.Path)
	assert.NotNil(t, tr.Get("/tmp"))
	assert.NotNil(t, tr.Get("/tmp/foo"))
	assert.Same(t, tr.Get("/tmp"), tr.Get("/tmp/foo").Parent)
}

func TestAddAtPathIdempotent(t *testing.T) {
	tr := tree.New()
	n1 := tr.AddAtPath("/a/b", true)
	n2 := tr.AddAtPath("/a/b", false)
	assert.Same(t, n1, n2)
}

func TestPruneRemovesEmptyAncestors(t *testing.T) {
	tr := tree.New()
	leaf := tr.AddAtPath("/a/b/c", false)
	sub := &fakeSub{reqno: 1}
	leaf.AddSub(sub)

	tr.Prune(leaf)
	assert.NotNil(t, tr.Get("/a/b/c"), "node with a subscription must not be pruned")

	leaf.RemoveSub(sub)
	tr.Prune(leaf)
	assert.Nil(t, tr.Get("/a/b/c"))
	assert.Nil(t, tr.Get("/a/b"))
	assert.Nil(t, tr.Get("/a"))
	assert.NotNil(t, tr.Root(), "root must survive pruning")
}

func TestPruneStopsAtNodeWithChildren(t *testing.T) {
	tr := tree.New()
	tr.AddAtPath("/a/b", true)
	tr.AddAtPath("/a/c", true)

	b := tr.Get("/a/b")
	tr.Prune(b)

	assert.Nil(t, tr.Get("/a/b"))
	assert.NotNil(t, tr.Get("/a"), "/a still has child /a/c")
	assert.NotNil(t, tr.Get("/a/c"))
}
