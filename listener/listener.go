// Package listener implements the Listener entity of spec §3: the
// bijection between an authenticated connection and its peer identity and
// subscription set. Grounded on original_source/server/gam_listener.c.
package listener

import (
	"github.com/nabbar/famd/event"
	"github.com/nabbar/famd/subscription"
)

// Sink is the owning connection's event delivery entry point. The
// connection implements this; listener forwards every Enqueue call to it,
// which keeps listener from importing the server package.
type Sink interface {
	Enqueue(ev event.Event)
}

// Listener is the server-side peer identity and subscription table for one
// connection.
type Listener struct {
	peerPid  int
	peerName string
	sink     Sink

	// subs is mutated only from the server loop goroutine (spec §5: the
	// subscription registry is daemon-loop local, no locking needed).
	subs map[uint16]*subscription.Subscription
}

// New creates a Listener for a connection whose peer credentials resolved
// to peerPid/peerName.
func New(peerPid int, peerName string, sink Sink) *Listener {
	return &Listener{
		peerPid:  peerPid,
		peerName: peerName,
		sink:     sink,
		subs:     map[uint16]*subscription.Subscription{},
	}
}

func (l *Listener) PeerPid() int     { return l.peerPid }
func (l *Listener) PeerName() string { return l.peerName }

// Enqueue satisfies subscription.ListenerRef by forwarding to the owning
// connection's queue.
func (l *Listener) Enqueue(ev event.Event) {
	l.sink.Enqueue(ev)
}

// AddSubscription registers sub under its reqno. It returns false if the
// reqno is already in use on this connection (spec §3: "at most one active
// subscription per reqno per connection").
func (l *Listener) AddSubscription(sub *subscription.Subscription) bool {
	if _, exists := l.subs[sub.Reqno()]; exists {
		return false
	}
	l.subs[sub.Reqno()] = sub
	return true
}

// RemoveSubscription detaches sub from the listener's table.
func (l *Listener) RemoveSubscription(sub *subscription.Subscription) {
	delete(l.subs, sub.Reqno())
}

// GetSubscriptionByReqno looks up a live subscription by its reqno.
func (l *Listener) GetSubscriptionByReqno(reqno uint16) *subscription.Subscription {
	return l.subs[reqno]
}

// Subscriptions returns a snapshot of all subscriptions still registered
// on this listener, used by remove_all_for on connection close.
func (l *Listener) Subscriptions() []*subscription.Subscription {
	out := make([]*subscription.Subscription, 0, len(l.subs))
	for _, s := range l.subs {
		out = append(out, s)
	}
	return out
}

var _ subscription.ListenerRef = (*Listener)(nil)
