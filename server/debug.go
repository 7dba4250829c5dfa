package server

import (
	"fmt"

	"github.com/nabbar/famd/event"
	"github.com/nabbar/famd/protocol"
)

// debugSnapshotEvent answers a DEBUG request (spec §4.1's extension
// range ≥50) with a single synthetic event carrying a human-readable
// snapshot of engine size as its path, the way the original's debug
// command dumps internal state to the requesting client rather than to
// a log file.
func debugSnapshotEvent(reqno uint16, s *Server) event.Event {
	msg := fmt.Sprintf("nodes=%d connections=%d backend=%s", s.tree.Size(), len(s.conns), backendName(s.backend))
	return event.Event{Reqno: reqno, Code: protocol.EventDebugBase, Path: msg}
}

func backendName(b interface{ Name() string }) string {
	if b == nil {
		return "none"
	}
	return b.Name()
}
