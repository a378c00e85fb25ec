package handler_test

import (
	"context"
	"testing"
	"time"

	"github.com/sshlog/agent/bus"
	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/ipc/handler"
	"github.com/sshlog/agent/streamlease"
	"github.com/sshlog/agent/wire"
)

func TestWatch_DeliversMatchingEvents(t *testing.T) {
	b := bus.New(nil)
	leases := streamlease.New()
	h := handler.Watch(b, leases, func() bool { return true })

	conn1, conn2 := testConnPair(t)
	defer conn1.Close()
	defer conn2.Close()
	p := testPeer(t, conn1)

	raw, _ := wire.Encode("c", "corr-1", wire.EventWatchRequest, wire.EventWatchRequestBody{
		PayloadType: wire.EventWatchRequest,
		EventTypes:  []event.Kind{event.KindTerminalUpdate},
	})
	env, _ := wire.Decode(raw)
	h(context.Background(), p, env)

	// Give the subscription goroutine a moment to register.
	time.Sleep(50 * time.Millisecond)

	b.Publish(event.Event{Kind: event.KindTerminalUpdate, PtmPID: 7, TerminalData: "ls\n"})

	resp := readEnvelope(t, conn2)
	var body wire.EventWatchResponseBody
	if err := resp.DecodeBody(&body); err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if body.EventType != event.KindTerminalUpdate || body.Payload.PtmPID != 7 {
		t.Fatalf("unexpected delivered event: %+v", body)
	}
}

func TestWatch_RepeatCorrelationIDCoalescesIntoRefresh(t *testing.T) {
	b := bus.New(nil)
	leases := streamlease.New()
	h := handler.Watch(b, leases, func() bool { return true })

	conn1, _ := testConnPair(t)
	defer conn1.Close()
	p := testPeer(t, conn1)

	raw, _ := wire.Encode("c", "corr-dup", wire.EventWatchRequest, wire.EventWatchRequestBody{
		PayloadType: wire.EventWatchRequest,
		EventTypes:  []event.Kind{event.KindTerminalUpdate},
	})
	env, _ := wire.Decode(raw)

	h(context.Background(), p, env)
	h(context.Background(), p, env) // should only refresh the lease, not start a second handler

	time.Sleep(50 * time.Millisecond)
	if !leases.IsActive(p.ID() + ":corr-dup") {
		t.Fatalf("expected lease to be active after refresh")
	}
}
