package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/famd/protocol"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pkt := protocol.Packet{Seq: 7, Type: uint16(protocol.ReqDir) | protocol.OptNoExists, Path: "/tmp/foo"}
	buf, err := protocol.Encode(pkt)
	require.NoError(t, err)

	got, n, ok, err := protocol.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, pkt.Seq, got.Seq)
	assert.Equal(t, pkt.Path, got.Path)
	assert.Equal(t, protocol.ReqDir, got.RequestCode())
	assert.True(t, got.HasOption(protocol.OptNoExists))
}

func TestDecodePartialBuffer(t *testing.T) {
	pkt := protocol.Packet{Seq: 1, Type: uint16(protocol.ReqFile), Path: "/a/b/c"}
	buf, err := protocol.Encode(pkt)
	require.NoError(t, err)

	_, _, ok, err := protocol.Decode(buf[:protocol.HeaderLen-1])
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = protocol.Decode(buf[:len(buf)-1])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeConcatenatedPackets(t *testing.T) {
	p1, _ := protocol.Encode(protocol.Packet{Seq: 1, Type: uint16(protocol.ReqFile), Path: "/a"})
	p2, _ := protocol.Encode(protocol.Packet{Seq: 2, Type: uint16(protocol.ReqFile), Path: "/b"})
	buf := append(append([]byte{}, p1...), p2...)

	got1, n1, ok, err := protocol.Decode(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/a", got1.Path)

	got2, n2, ok, err := protocol.Decode(buf[n1:])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/b", got2.Path)
	assert.Equal(t, len(buf), n1+n2)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	buf, _ := protocol.Encode(protocol.Packet{Seq: 1, Type: uint16(protocol.ReqFile), Path: "/a"})
	buf[2] = 9 // corrupt version field
	_, _, _, err := protocol.Decode(buf)
	assert.Error(t, err)
}

func TestDecodeRejectsZeroPathlenForMonitor(t *testing.T) {
	buf, _ := protocol.Encode(protocol.Packet{Seq: 1, Type: uint16(protocol.ReqDir), Path: ""})
	// pathlen 0 is invalid for MONDIR per spec S6
	_, _, _, err := protocol.Decode(buf)
	assert.Error(t, err)
}

func TestCancelAllowsEmptyPath(t *testing.T) {
	buf, err := protocol.Encode(protocol.Packet{Seq: 3, Type: uint16(protocol.ReqCancel), Path: ""})
	require.NoError(t, err)
	_, _, ok, err := protocol.Decode(buf)
	require.NoError(t, err)
	assert.True(t, ok)
}
