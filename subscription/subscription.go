// Package subscription implements the server-side Subscription entity of
// spec §3: a client's standing request for events on a path, keyed by
// (connection, reqno), bound to a live tree node.
package subscription

import (
	"github.com/nabbar/famd/event"
	"github.com/nabbar/famd/protocol"
	"github.com/nabbar/famd/tree"
)

// State is the subscription lifecycle state of spec §3.
type State uint8

const (
	StateInit State = iota
	StateConfirmed
	StateSuspended
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConfirmed:
		return "confirmed"
	case StateSuspended:
		return "suspended"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ListenerRef is the view a Subscription needs of its owning listener: just
// enough to deliver an event and to identify the peer in logs. The listener
// package implements this; subscription never imports listener, which
// keeps the Subscription<->Listener back-reference acyclic.
type ListenerRef interface {
	Enqueue(ev event.Event)
	PeerPid() int
}

// Subscription is one standing monitor request.
type Subscription struct {
	reqno    uint16
	listener ListenerRef
	path     string
	isDir    bool
	options  uint16
	state    State
	node     *tree.Node
	userData interface{}
}

// New builds a Subscription in StateInit; the registry transitions it to
// StateConfirmed once it has been attached to a tree node.
func New(reqno uint16, l ListenerRef, path string, isDir bool, options uint16, userData interface{}) *Subscription {
	return &Subscription{reqno: reqno, listener: l, path: path, isDir: isDir, options: options, state: StateInit, userData: userData}
}

func (s *Subscription) Reqno() uint16        { return s.reqno }
func (s *Subscription) IsDirSub() bool       { return s.isDir }
func (s *Subscription) Path() string         { return s.path }
func (s *Subscription) Options() uint16      { return s.options }
func (s *Subscription) UserData() interface{} { return s.userData }
func (s *Subscription) Listener() ListenerRef { return s.listener }

// NoExists reports whether the NO-EXISTS option suppresses the initial
// Exists/EndExist enumeration burst (spec §4.5 case 3).
func (s *Subscription) NoExists() bool {
	return s.options&protocol.OptNoExists != 0
}

func (s *Subscription) State() State      { return s.state }
func (s *Subscription) SetState(st State) { s.state = st }

func (s *Subscription) Node() *tree.Node    { return s.node }
func (s *Subscription) SetNode(n *tree.Node) { s.node = n }

// Emit delivers one event to the owning listener, unless the subscription
// has been cancelled — in which case only a final Acknowledge is allowed
// through (spec invariant 2: Acknowledge is the last event for a cancelled
// reqno, and nothing follows it).
func (s *Subscription) Emit(code protocol.EventCode, path string) {
	if s.state == StateCancelled && code != protocol.EventAcknowledge {
		return
	}
	s.listener.Enqueue(event.Event{Reqno: s.reqno, Code: code, Path: path, UserData: s.userData})
}

var _ tree.SubRef = (*Subscription)(nil)
