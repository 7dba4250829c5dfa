// Package protocol implements the famd wire format: a fixed 10-byte header
// (five uint16 fields, host byte order — local sockets only, spec §4.1)
// followed by a path payload, not NUL-terminated on the wire.
//
// Layout, bit-exact with the original gamin FAM protocol so an unmodified
// client/server pairing keeps working across a reconnect:
//
//	total-length (16) | protocol-version (16) | sequence (16) |
//	type-with-options (16) | path-length (16) | path bytes (path-length)
package protocol

import (
	"encoding/binary"

	liberr "github.com/nabbar/famd/errors"
)

// HeaderLen is the fixed byte length of a packet header (5 * uint16).
const HeaderLen = 10

// Version is the only protocol version famd speaks.
const Version uint16 = 1

// MaxPath bounds path length the way MAXPATHLEN does in the original.
const MaxPath = 4096

// MaxPacket bounds the largest packet the wire parser will accept.
const MaxPacket = HeaderLen + MaxPath

// RequestType is the low-nibble request/event code of the type field.
type RequestType uint16

const (
	ReqFile   RequestType = 1
	ReqDir    RequestType = 2
	ReqCancel RequestType = 3
	ReqDebug  RequestType = 4
)

// Option bits live in the upper 12 bits of the type field.
const (
	OptNoExists uint16 = 0x10
)

// EventCode is the disjoint FAM-facing event code space (spec §6).
type EventCode uint16

const (
	EventChanged        EventCode = 1
	EventDeleted        EventCode = 2
	EventStartExecuting EventCode = 3
	EventStopExecuting  EventCode = 4
	EventCreated        EventCode = 5
	EventAcknowledge    EventCode = 6
	EventExists         EventCode = 7
	EventEndExist       EventCode = 8
	EventMoved          EventCode = 9

	// EventDebugBase starts the extension range reserved for debug events
	// (spec §4.1: "plus an extension range ≥50 reserved for debug").
	EventDebugBase EventCode = 50
)

func (e EventCode) String() string {
	switch e {
	case EventChanged:
		return "Changed"
	case EventDeleted:
		return "Deleted"
	case EventStartExecuting:
		return "StartExecuting"
	case EventStopExecuting:
		return "StopExecuting"
	case EventCreated:
		return "Created"
	case EventAcknowledge:
		return "Acknowledge"
	case EventExists:
		return "Exists"
	case EventEndExist:
		return "EndExist"
	case EventMoved:
		return "Moved"
	default:
		if e >= EventDebugBase {
			return "Debug"
		}
		return "Unknown"
	}
}

// Packet is a single request (client->server) or event (server->client)
// frame. Type carries RequestType|options on the request path and an
// EventCode on the event path; the codec does not distinguish the two,
// callers interpret Type according to direction.
type Packet struct {
	Seq  uint16
	Type uint16
	Path string
}

// RequestCode extracts the low-nibble request code from Type.
func (p Packet) RequestCode() RequestType {
	return RequestType(p.Type & 0xF)
}

// Options extracts the option bits (upper 12 bits) from Type.
func (p Packet) Options() uint16 {
	return p.Type &^ 0xF
}

// HasOption reports whether opt is set among Options().
func (p Packet) HasOption(opt uint16) bool {
	return p.Options()&opt != 0
}

// Encode serializes p to the wire format described above.
func Encode(p Packet) ([]byte, error) {
	pathlen := len(p.Path)
	if pathlen > MaxPath {
		return nil, liberr.New(liberr.FilenameError, "path too long", nil)
	}

	total := HeaderLen + pathlen
	buf := make([]byte, total)
	binary.NativeEndian.PutUint16(buf[0:2], uint16(total))
	binary.NativeEndian.PutUint16(buf[2:4], Version)
	binary.NativeEndian.PutUint16(buf[4:6], p.Seq)
	binary.NativeEndian.PutUint16(buf[6:8], p.Type)
	binary.NativeEndian.PutUint16(buf[8:10], uint16(pathlen))
	copy(buf[HeaderLen:], p.Path)
	return buf, nil
}

// Decode parses exactly one packet from the front of buf, validating it
// per spec §4.1 (total-length == header + pathlen, version == 1, pathlen
// in (0, MaxPath] for non-cancel requests). It returns the packet and the
// number of bytes consumed. ErrShortBuffer-equivalent: when buf does not
// yet hold a complete packet, ok is false and no error is returned — the
// caller keeps accumulating.
func Decode(buf []byte) (pkt Packet, consumed int, ok bool, err error) {
	if len(buf) < HeaderLen {
		return Packet{}, 0, false, nil
	}

	total := binary.NativeEndian.Uint16(buf[0:2])
	version := binary.NativeEndian.Uint16(buf[2:4])
	seq := binary.NativeEndian.Uint16(buf[4:6])
	typ := binary.NativeEndian.Uint16(buf[6:8])
	pathlen := binary.NativeEndian.Uint16(buf[8:10])

	if int(total) > MaxPacket {
		return Packet{}, 0, false, liberr.Wrap(liberr.ProtocolError, liberr.ErrProtocol)
	}
	if version != Version {
		return Packet{}, 0, false, liberr.Wrap(liberr.ProtocolError, liberr.ErrProtocol)
	}

	isCancel := RequestType(typ&0xF) == ReqCancel
	if !isCancel && (pathlen == 0 || int(pathlen) > MaxPath) {
		return Packet{}, 0, false, liberr.Wrap(liberr.ProtocolError, liberr.ErrProtocol)
	}
	if int(pathlen)+HeaderLen != int(total) {
		return Packet{}, 0, false, liberr.Wrap(liberr.ProtocolError, liberr.ErrProtocol)
	}

	if len(buf) < int(total) {
		return Packet{}, 0, false, nil
	}

	path := string(buf[HeaderLen:total])
	return Packet{Seq: seq, Type: typ, Path: path}, int(total), true, nil
}
