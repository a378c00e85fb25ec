package handler_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/sshlog/agent/ipc"
	"github.com/sshlog/agent/wire"
)

// testConnPair returns a connected in-memory pipe: conn1 is given to
// the Peer under test, conn2 is read by the test to observe responses.
func testConnPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	c1, c2 := net.Pipe()
	return c1, c2
}

func testPeer(t *testing.T, conn net.Conn) *ipc.Peer {
	t.Helper()
	p := ipc.NewPeer("test-peer", conn)
	go p.RunWriter()
	t.Cleanup(p.Close)
	return p
}

func readEnvelope(t *testing.T, conn net.Conn) wire.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("expected a response frame: %v", scanner.Err())
	}
	env, err := wire.Decode(scanner.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return env
}
