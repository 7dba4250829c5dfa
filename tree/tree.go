// Package tree implements the path tree of spec §4.4: one node per watched
// path and per ancestor on the way to "/", storing a stat baseline,
// monitoring flags, and the list of subscriptions attached to that path.
//
// Grounded on original_source/server/gam_tree.c's slash-by-slash
// add_at_path walk and gam_poll_generic.c's prune_tree recursion, adapted
// from GNode/GHashTable to a plain map-backed tree with no glib.
package tree

import (
	"os"
	"strings"
	"time"

	"github.com/nabbar/famd/protocol"
)

// Flag is a bitmask of the four monitoring flags from spec §4.4.
type Flag uint8

const (
	// Missing: the path does not currently exist.
	Missing Flag = 1 << iota
	// NoKernel: the path is excluded or its filesystem forbids kernel watching.
	NoKernel
	// Busy: too many modifications detected; switched to poll-only (flow control).
	Busy
	// WrongType: client asked for directory monitoring but path is a file, or
	// vice versa.
	WrongType
)

// Baseline is the stat snapshot a node is compared against on each poll tick.
type Baseline struct {
	MtimeNS int64
	CtimeNS int64
	Size    int64
	Exists  bool
}

// SubRef is the minimal view tree.Node needs of a subscription: just enough
// to count, list and drive pruning decisions. The subscription package
// implements this interface; tree never imports subscription, which keeps
// the subscription<->node back-reference (spec §3: "tree nodes hold weak
// back references by pointer equality") acyclic at the package level.
type SubRef interface {
	Reqno() uint16
	IsDirSub() bool
	// Emit delivers one event for this subscription. The registry's
	// Dispatch calls this directly so neither tree nor registry needs to
	// import the concrete subscription type.
	Emit(code protocol.EventCode, path string)
}

// Node is one path tree entry.
type Node struct {
	Path     string
	IsDir    bool
	Parent   *Node
	Children map[string]*Node

	Baseline    Baseline
	LastPoll    time.Time
	CheckCount  int
	PollTimeout time.Duration

	flags Flag
	subs  []SubRef
}

// Flags reports the current monitoring flags.
func (n *Node) Flags() Flag { return n.flags }

// HasFlag reports whether f is set.
func (n *Node) HasFlag(f Flag) bool { return n.flags&f != 0 }

// SetFlag sets f.
func (n *Node) SetFlag(f Flag) { n.flags |= f }

// ClearFlag clears f.
func (n *Node) ClearFlag(f Flag) { n.flags &^= f }

// Subs returns the subscriptions currently attached to this node.
func (n *Node) Subs() []SubRef { return n.subs }

// AddSub attaches a subscription reference to the node.
func (n *Node) AddSub(s SubRef) { n.subs = append(n.subs, s) }

// RemoveSub detaches a subscription reference by identity: pruning only
// cares about count, but callers need removal by identity, so this
// compares by pointer equality through the interface value, not by reqno.
func (n *Node) RemoveSub(s SubRef) {
	out := n.subs[:0]
	for _, cur := range n.subs {
		if cur != s {
			out = append(out, cur)
		}
	}
	n.subs = out
}

// Tree is a rooted path tree, keyed by absolute path for O(1) lookup as
// original gamin's node_hash provided alongside the GNode parent/child
// links.
type Tree struct {
	root  *Node
	index map[string]*Node
}

// New creates a tree rooted at "/".
func New() *Tree {
	root := &Node{Path: "/", IsDir: true, Children: map[string]*Node{}}
	return &Tree{root: root, index: map[string]*Node{"/": root}}
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node { return t.root }

// Get looks up a node by absolute path.
func (t *Tree) Get(path string) *Node {
	return t.index[path]
}

// Size returns the number of nodes in the tree (including root).
func (t *Tree) Size() int { return len(t.index) }

// Nodes returns every node currently in the tree, including root, in
// unspecified order. The polling engine uses this to walk all watched
// paths on each tick.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, 0, len(t.index))
	for _, n := range t.index {
		out = append(out, n)
	}
	return out
}

// AddAtPath walks path slash-by-slash, creating directory nodes as needed,
// exactly as gam_tree_add_at_path does, and returns the (possibly
// newly created) leaf node for path. isDir is only used when the path does
// not exist on disk; when it exists, the node's IsDir is taken from a stat.
func (t *Tree) AddAtPath(path string, isDir bool) *Node {
	if n, ok := t.index[path]; ok {
		return n
	}
	if path == "" {
		path = "/"
	}

	if fi, err := os.Stat(path); err == nil {
		isDir = fi.IsDir()
	}

	parent := t.root
	var b strings.Builder
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	cur := ""
	for i, seg := range segs {
		if seg == "" {
			continue
		}
		b.Reset()
		b.WriteString(cur)
		b.WriteByte('/')
		b.WriteString(seg)
		cur = b.String()

		last := i == len(segs)-1
		if existing, ok := t.index[cur]; ok {
			parent = existing
			continue
		}

		nodeIsDir := true
		if last {
			nodeIsDir = isDir
		}
		child := &Node{Path: cur, IsDir: nodeIsDir, Parent: parent, Children: map[string]*Node{}}
		parent.Children[seg] = child
		t.index[cur] = child
		parent = child
	}

	return parent
}

// Prune walks upward from node, removing any ancestor that has no
// subscriptions and no children, stopping before the root (spec §4.4,
// grounded on gam_poll_generic_prune_tree).
func (t *Tree) Prune(n *Node) {
	for n != nil && n.Parent != nil {
		if len(n.Children) > 0 || len(n.subs) > 0 {
			return
		}
		parent := n.Parent
		delete(parent.Children, baseName(n.Path))
		delete(t.index, n.Path)
		n = parent
	}
}

// Dispatch delivers code to every subscription that matches node: the
// node's own subscriptions (full path), plus its parent's directory
// subscriptions (basename-relativized) — spec §4.3/§4.4's matching rule.
// Kept in this package (rather than registry or poll) since it only
// needs a *Node and the SubRef view, and both the polling engine and the
// subscription registry need to call it without importing each other.
func Dispatch(node *Node, code protocol.EventCode) {
	for _, s := range node.subs {
		s.Emit(code, node.Path)
	}
	if node.Parent == nil {
		return
	}
	base := baseName(node.Path)
	for _, s := range node.Parent.subs {
		if !s.IsDirSub() {
			continue
		}
		s.Emit(code, base)
	}
}

func baseName(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return path
	}
	return path[i+1:]
}
