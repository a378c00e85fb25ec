package ipc_test

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sshlog/agent/ipc"
	"github.com/sshlog/agent/wire"
)

func startRouter(t *testing.T) (*ipc.Router, string) {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "sshlogd.sock")
	r := ipc.New(ipc.Config{SocketPath: sock}, nil)

	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = r.Listen(context.Background())
	}()
	<-ready
	// Give the listener a moment to bind.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c, err := net.Dial("unix", sock); err == nil {
			c.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = r.Shutdown(ctx)
	})

	return r, sock
}

func TestRouter_AppliesConfiguredSocketMode(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "sshlogd.sock")
	r := ipc.New(ipc.Config{SocketPath: sock, Mode: 0o600}, nil)

	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = r.Listen(context.Background())
	}()
	<-ready

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if info, err := os.Stat(sock); err == nil {
			if info.Mode().Perm() != 0o600 {
				t.Fatalf("socket mode = %v, want 0600", info.Mode().Perm())
			}
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = r.Shutdown(ctx)
}

func TestRouter_DispatchesToRegisteredHandler(t *testing.T) {
	r, sock := startRouter(t)

	got := make(chan wire.Envelope, 1)
	r.Register(wire.SessionListRequest, func(ctx context.Context, p *ipc.Peer, env wire.Envelope) {
		got <- env
		_ = p.Send(wire.Envelope{
			ClientID:      env.ClientID,
			CorrelationID: env.CorrelationID,
			PayloadType:   wire.SessionListResponse,
			DTOPayload:    `{"payload_type":2,"sessions":[]}`,
		})
	})

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	raw, _ := wire.Encode("c1", "corr-1", wire.SessionListRequest, wire.SessionListRequestBody{PayloadType: wire.SessionListRequest})
	raw = append(raw, '\n')
	if _, err := conn.Write(raw); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case env := <-got:
		if env.CorrelationID != "corr-1" {
			t.Fatalf("unexpected correlation id: %s", env.CorrelationID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for handler dispatch")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("expected a response frame: %v", scanner.Err())
	}
	resp, err := wire.Decode(scanner.Bytes())
	if err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if resp.PayloadType != wire.SessionListResponse || resp.CorrelationID != "corr-1" {
		t.Fatalf("unexpected response envelope: %+v", resp)
	}
}

func TestRouter_UnknownPayloadTypeIsDroppedSilently(t *testing.T) {
	_, sock := startRouter(t)

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"client_id":"c","correlation_id":"x","payload_type":9999,"dto_payload":"{}"}` + "\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 16)
	if _, err := conn.Read(buf); err == nil {
		t.Fatalf("expected no response for a malformed frame")
	}
}

func TestRouter_ShutdownStopsAcceptingNewConnections(t *testing.T) {
	r, sock := startRouter(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := net.Dial("unix", sock); err == nil {
		t.Fatalf("expected dial to fail after shutdown")
	}
}
