// Package registry implements the subscription registry of spec §4.3:
// the add/cancel/remove-all-for/dispatch operations that tie a
// connection's listener, the path tree, and the polling engine together.
// Grounded on original_source/server/gam_subscribe.c, which is the file
// that actually calls into gam_tree/gam_node/gam_poll_generic on behalf
// of an incoming MONFILE/MONDIR/CANCEL request — everything below mirrors
// that call sequence.
package registry

import (
	"github.com/nabbar/famd/listener"
	"github.com/nabbar/famd/poll"
	"github.com/nabbar/famd/protocol"
	"github.com/nabbar/famd/subscription"
	"github.com/nabbar/famd/tree"
)

// Registry wires a path tree and a polling engine to a connection's
// listeners, implementing the operations spec §4.3 names.
type Registry struct {
	tree   *tree.Tree
	engine *poll.Engine
}

// New builds a Registry over the given tree and polling engine.
func New(t *tree.Tree, engine *poll.Engine) *Registry {
	return &Registry{tree: t, engine: engine}
}

// Add creates (or reuses) the tree node for path, attaches a new
// Subscription to it and to l, arms kernel or poll-only monitoring, and
// fires the initial Exists/EndExist burst unless noExists suppresses it
// (spec §4.3, §4.5). If reqno collides with an existing subscription on l
// it returns (nil, false) and leaves the tree untouched; no error value is
// produced.
func (r *Registry) Add(l *listener.Listener, reqno uint16, path string, isDir bool, options uint16, userData interface{}) (*subscription.Subscription, bool) {
	sub := subscription.New(reqno, l, path, isDir, options, userData)
	if !l.AddSubscription(sub) {
		return nil, false
	}

	node := r.tree.AddAtPath(path, isDir)
	if node.IsDir != isDir {
		node.SetFlag(tree.WrongType)
	}
	node.AddSub(sub)
	sub.SetNode(node)
	sub.SetState(subscription.StateConfirmed)

	if r.engine != nil {
		r.engine.Arm(node)
		r.engine.InitialEnumeration(sub, node, sub.NoExists())
	}

	return sub, true
}

// Cancel marks reqno's subscription cancelled, detaches it from its node
// (pruning empty ancestors) and from l, and emits the cancel's own
// Acknowledge — the one event Subscription.Emit still allows once
// cancelled (spec invariant 2).
func (r *Registry) Cancel(l *listener.Listener, reqno uint16) bool {
	sub := l.GetSubscriptionByReqno(reqno)
	if sub == nil {
		return false
	}
	r.detach(l, sub)
	sub.Emit(protocol.EventAcknowledge, sub.Path())
	return true
}

// RemoveAllFor detaches every subscription l holds, without emitting
// Acknowledge events — used when a connection closes (spec §4.2: a
// closed connection's subscriptions vanish silently, there is no peer
// left to acknowledge to).
func (r *Registry) RemoveAllFor(l *listener.Listener) {
	for _, sub := range l.Subscriptions() {
		r.detach(l, sub)
	}
}

func (r *Registry) detach(l *listener.Listener, sub *subscription.Subscription) {
	sub.SetState(subscription.StateCancelled)
	if node := sub.Node(); node != nil {
		node.RemoveSub(sub)
		if r.engine != nil && len(node.Subs()) == 0 {
			r.engine.Disarm(node)
		}
		r.tree.Prune(node)
	}
	l.RemoveSubscription(sub)
}

// Dispatch delivers code to every subscription that matches node. It is
// a thin re-export of tree.Dispatch so callers that only know about the
// registry (rather than the tree package directly) still find the
// operation named in spec §4.3 here.
func Dispatch(node *tree.Node, code protocol.EventCode) {
	tree.Dispatch(node, code)
}
