// Package server implements the per-connection state machine and the
// daemon's main loop (spec §4.2, §4.8). Grounded on
// original_source/server/gam_connection.c (the AUTH -> OKAY ->
// {ERROR, CLOSED} state machine and packet accumulation) and
// gam_server.c (the original's GMainLoop-driven accept/dispatch loop,
// redesigned here as a single loop goroutine fed by channels per spec
// §9 DESIGN NOTES).
package server

import (
	"io"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	liberr "github.com/nabbar/famd/errors"
	"github.com/nabbar/famd/event"
	"github.com/nabbar/famd/internal/peercred"
	"github.com/nabbar/famd/listener"
	"github.com/nabbar/famd/protocol"
	"github.com/nabbar/famd/queue"
)

// State is the connection lifecycle state of spec §4.2.
type State uint8

const (
	StateAuth State = iota
	StateOkay
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAuth:
		return "auth"
	case StateOkay:
		return "okay"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection wraps one accepted socket: its auth state, its listener
// (once authenticated), its outbound event queue, and the inbound byte
// accumulation buffer packet decoding needs for partial/piggy-backed
// reads (spec §4.1).
type Connection struct {
	conn  net.Conn
	state State
	peer  peercred.Credentials

	listener *listener.Listener
	queue    *queue.Queue
	buf      []byte

	log *logrus.Entry
}

// NewConnection wraps an accepted net.Conn, not yet authenticated.
func NewConnection(conn net.Conn, log *logrus.Entry) *Connection {
	return &Connection{conn: conn, state: StateAuth, queue: queue.New(), log: log}
}

// Authenticate performs the one-byte credential handshake of spec §4.2/
// §6: the client sends a single zero byte immediately after connect,
// which this reads before resolving peer credentials; on success the
// server writes one zero byte back so the client can verify liveness.
// On platforms where peer credentials cannot be resolved, famd falls
// back to trusting the socket's filesystem permissions (cmd/famd makes
// the socket owner-only right after binding it) rather than refusing
// every connection outright.
func (c *Connection) Authenticate() error {
	hs := make([]byte, 1)
	if _, err := io.ReadFull(c.conn, hs); err != nil {
		c.state = StateError
		return liberr.Wrap(liberr.ConnectError, err)
	}

	cred, err := peercred.From(c.conn)
	switch {
	case err != nil:
		c.state = StateOkay
	case cred.Uid != uint32(os.Getuid()):
		c.state = StateError
		return liberr.ErrAuth
	default:
		c.peer = cred
		c.state = StateOkay
	}

	if _, err := c.conn.Write([]byte{0}); err != nil {
		c.state = StateError
		return liberr.Wrap(liberr.ConnectError, err)
	}
	return nil
}

// AttachListener binds the authenticated connection to its subscription
// listener.
func (c *Connection) AttachListener(l *listener.Listener) { c.listener = l }

// Listener returns the connection's listener, or nil before AttachListener.
func (c *Connection) Listener() *listener.Listener { return c.listener }

// State reports the connection's current lifecycle state.
func (c *Connection) State() State { return c.state }

// PeerCredentials returns the resolved peer identity (zero value if
// unresolved).
func (c *Connection) PeerCredentials() peercred.Credentials { return c.peer }

// Enqueue implements listener.Sink: subscriptions push events here
// rather than writing to the socket directly, so a slow peer never
// blocks the engine mid-dispatch (spec §4.2's per-connection queue).
func (c *Connection) Enqueue(ev event.Event) {
	c.queue.Enqueue(ev)
}

// WriteEvent implements queue.Writer, encoding one event as a wire
// packet and writing it to the socket.
func (c *Connection) WriteEvent(ev event.Event) error {
	pkt := protocol.Packet{Seq: ev.Reqno, Type: uint16(ev.Code), Path: ev.Path}
	buf, err := protocol.Encode(pkt)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(buf)
	return err
}

// Flush drains whatever events are currently queued to the wire,
// stopping at the first write error (the remainder stays queued; the
// server loop closes the connection on a flush error — spec §4.2).
func (c *Connection) Flush() error {
	_, err := c.queue.Flush(c)
	return err
}

// QueueLen reports how many events are currently queued, used for the
// queue-depth metric.
func (c *Connection) QueueLen() int { return c.queue.Len() }

// ReadPackets reads one buffer's worth of bytes off the socket and
// decodes every complete packet now available, invoking handle for each
// in wire order. A short read that doesn't complete a packet leaves the
// remainder in the internal buffer for the next call (spec §4.1 "packet
// accumulation/compaction for partial/piggy-backed packets").
func (c *Connection) ReadPackets(handle func(protocol.Packet)) error {
	tmp := make([]byte, 4096)
	n, err := c.conn.Read(tmp)
	if err != nil {
		return err
	}
	c.buf = append(c.buf, tmp[:n]...)

	for {
		pkt, consumed, ok, derr := protocol.Decode(c.buf)
		if derr != nil {
			return derr
		}
		if !ok {
			break
		}
		handle(pkt)
		c.buf = c.buf[consumed:]
	}
	return nil
}

// Close flushes any remaining queued events, then closes the socket
// (spec §4.2: "explicit flush-then-drain on close").
func (c *Connection) Close() error {
	_ = c.Flush()
	c.queue.Drain()
	c.state = StateClosed
	return c.conn.Close()
}

var _ listener.Sink = (*Connection)(nil)
var _ queue.Writer = (*Connection)(nil)
