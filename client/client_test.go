package client

import (
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/famd/protocol"
)

// acceptAndHandshake performs the accept side of the one-byte credential
// handshake (spec §4.2/§6) a real famd daemon would do in
// Connection.Authenticate: read the client's handshake byte, then write
// one back confirming liveness.
func acceptAndHandshake(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	conn, err := ln.Accept()
	require.NoError(t, err)

	hs := make([]byte, 1)
	_, err = io.ReadFull(conn, hs)
	require.NoError(t, err)
	_, err = conn.Write([]byte{0})
	require.NoError(t, err)

	return conn
}

func TestClientIDRespectsEnv(t *testing.T) {
	t.Setenv("GAM_CLIENT_ID", "fixed-id")
	assert.Equal(t, "fixed-id", clientID())
}

func TestClientIDGeneratesUUIDWhenUnset(t *testing.T) {
	os.Unsetenv("GAM_CLIENT_ID")
	id := clientID()
	assert.NotEmpty(t, id)
	assert.Len(t, id, 36) // canonical uuid string length
}

func startFakeDaemon(t *testing.T, sessionID string) (net.Listener, string) {
	t.Helper()
	sock, err := socketPath(sessionID)
	require.NoError(t, err)
	_ = os.Remove(sock)

	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	return ln, sock
}

func TestOpenDialsExistingDaemonWithoutLaunching(t *testing.T) {
	ln, sock := startFakeDaemon(t, "test-session-open")
	defer ln.Close()
	defer os.Remove(sock)

	accepted := make(chan net.Conn, 1)
	go func() {
		accepted <- acceptAndHandshake(t, ln)
	}()

	c, err := Open("test-session-open")
	require.NoError(t, err)
	defer c.Close()
	defer (<-accepted).Close()

	assert.Equal(t, sock, c.sockPath)
}

func TestMonitorFileSendsWellFormedRequest(t *testing.T) {
	ln, sock := startFakeDaemon(t, "test-session-monitor")
	defer ln.Close()
	defer os.Remove(sock)

	accepted := make(chan net.Conn, 1)
	go func() {
		accepted <- acceptAndHandshake(t, ln)
	}()

	c, err := Open("test-session-monitor")
	require.NoError(t, err)
	defer c.Close()

	reqno, err := c.MonitorFile("/tmp/whatever.txt", true, nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), reqno)

	server := <-accepted
	defer server.Close()
	server.SetReadDeadline(time.Now().Add(2 * time.Second))

	buf := make([]byte, protocol.MaxPacket)
	n, err := server.Read(buf)
	require.NoError(t, err)

	pkt, consumed, ok, derr := protocol.Decode(buf[:n])
	require.NoError(t, derr)
	require.True(t, ok)
	assert.Equal(t, n, consumed)

	assert.Equal(t, protocol.ReqFile, pkt.RequestCode())
	assert.True(t, pkt.HasOption(protocol.OptNoExists))
	assert.Equal(t, "/tmp/whatever.txt", pkt.Path)
}

func TestNextEventDecodesFromSocket(t *testing.T) {
	ln, sock := startFakeDaemon(t, "test-session-event")
	defer ln.Close()
	defer os.Remove(sock)

	accepted := make(chan net.Conn, 1)
	go func() {
		accepted <- acceptAndHandshake(t, ln)
	}()

	c, err := Open("test-session-event")
	require.NoError(t, err)
	defer c.Close()

	server := <-accepted
	defer server.Close()

	buf, err := protocol.Encode(protocol.Packet{Seq: 9, Type: uint16(protocol.EventChanged), Path: "/tmp/x"})
	require.NoError(t, err)
	_, err = server.Write(buf)
	require.NoError(t, err)

	ev, err := c.NextEvent()
	require.NoError(t, err)
	assert.Equal(t, uint16(9), ev.Reqno)
	assert.Equal(t, protocol.EventChanged, ev.Code)
	assert.Equal(t, "/tmp/x", ev.Path)
}
