// Package event defines the single canonical event representation used from
// the moment the engine (tree/poll/kernel) produces a change to the moment
// the connection writer serializes it onto the wire.
//
// The original gamin source kept two near-parallel enumerations
// (GAMIN_EVENT_* internally, FAM* on the wire) that differed only in how
// directory subscriptions relativize paths. Per spec §9 DESIGN NOTES
// ("FAM code/event-code duality"), famd unifies them: protocol.EventCode is
// used end to end, and only the relativization (basename vs full path) is
// computed once, at dispatch time, in tree.Dispatch.
package event

import "github.com/nabbar/famd/protocol"

// Event is one typed change notification bound to a subscription.
type Event struct {
	// Reqno identifies the subscription this event belongs to.
	Reqno uint16
	// Code is the canonical FAM event code.
	Code protocol.EventCode
	// Path is relative (basename) for directory-subscription entries,
	// absolute for the subscription root itself (spec §3 Event row).
	Path string
	// UserData is an opaque handle carried alongside the event; it never
	// crosses the wire. The client library does not store the userData
	// passed to MonitorFile/MonitorDirectory, so events returned by
	// client.NextEvent always carry a nil UserData.
	UserData interface{}
}
