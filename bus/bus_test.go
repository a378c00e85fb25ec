package bus_test

import (
	"testing"

	"github.com/sshlog/agent/bus"
	"github.com/sshlog/agent/event"
)

type fakeEnricher struct {
	username string
	ttyID    int
	ok       bool
}

func (f fakeEnricher) Lookup(ptmPID int) (string, int, bool) {
	return f.username, f.ttyID, f.ok
}

func TestPublish_ConnectionNewNeverDelivered(t *testing.T) {
	b := bus.New(nil)
	got := 0
	b.Subscribe(func(event.Event) { got++ })

	b.Publish(event.Event{Kind: event.KindConnectionNew, PtmPID: 1})

	if got != 0 {
		t.Fatalf("connection_new delivered %d times, want 0", got)
	}
}

func TestPublish_CommandWithoutUsernameDropped(t *testing.T) {
	b := bus.New(nil)
	got := 0
	b.Subscribe(func(event.Event) { got++ })

	b.Publish(event.Event{Kind: event.KindCommandStart, PtmPID: 55, Args: "ls", Username: ""})

	if got != 0 {
		t.Fatalf("command_start with empty username delivered %d times, want 0", got)
	}
}

func TestPublish_EnrichesFromTracker(t *testing.T) {
	b := bus.New(fakeEnricher{username: "a", ttyID: 7, ok: true})

	var seen event.Event
	b.Subscribe(func(e event.Event) { seen = e })

	b.Publish(event.Event{Kind: event.KindCommandStart, PtmPID: 42, Args: "ls", Username: "ignored-at-publish"})

	if seen.Username != "a" || seen.TTYID != 7 {
		t.Fatalf("enrichment = (%q, %d), want (a, 7)", seen.Username, seen.TTYID)
	}
}

func TestPublish_EnrichmentDefaultsWhenNoSession(t *testing.T) {
	b := bus.New(fakeEnricher{ok: false})

	var seen event.Event
	b.Subscribe(func(e event.Event) { seen = e })

	b.Publish(event.Event{Kind: event.KindFileUpload, PtmPID: 1, TargetPath: "/tmp/a"})

	if seen.Username != "" || seen.TTYID != -1 {
		t.Fatalf("enrichment defaults = (%q, %d), want (\"\", -1)", seen.Username, seen.TTYID)
	}
}

func TestSubscribe_IdempotentPerCallback(t *testing.T) {
	b := bus.New(nil)
	got := 0
	fn := func(event.Event) { got++ }

	b.Subscribe(fn, event.KindTerminalUpdate)
	b.Subscribe(fn, event.KindTerminalUpdate)

	b.Publish(event.Event{Kind: event.KindTerminalUpdate, PtmPID: 1})

	if got != 1 {
		t.Fatalf("delivered %d times after double subscribe, want 1", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := bus.New(nil)
	got := 0
	fn := func(event.Event) { got++ }

	b.Subscribe(fn, event.KindTerminalUpdate)
	b.Unsubscribe(fn, event.KindTerminalUpdate)
	b.Publish(event.Event{Kind: event.KindTerminalUpdate, PtmPID: 1})

	if got != 0 {
		t.Fatalf("delivered %d times after unsubscribe, want 0", got)
	}
}

func TestPublish_SubscriptionOrder(t *testing.T) {
	b := bus.New(nil)
	var order []int

	b.Subscribe(func(event.Event) { order = append(order, 1) }, event.KindTerminalUpdate)
	b.Subscribe(func(event.Event) { order = append(order, 2) }, event.KindTerminalUpdate)
	b.Subscribe(func(event.Event) { order = append(order, 3) }, event.KindTerminalUpdate)

	b.Publish(event.Event{Kind: event.KindTerminalUpdate, PtmPID: 1})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("delivery order = %v, want [1 2 3]", order)
	}
}

func TestPublish_PanicInCallbackDoesNotAbortFanOut(t *testing.T) {
	b := bus.New(nil)
	second := false

	b.Subscribe(func(event.Event) { panic("boom") }, event.KindTerminalUpdate)
	b.Subscribe(func(event.Event) { second = true }, event.KindTerminalUpdate)

	var caught interface{}
	b.OnCallbackError(func(kind event.Kind, r interface{}) { caught = r })

	b.Publish(event.Event{Kind: event.KindTerminalUpdate, PtmPID: 1})

	if !second {
		t.Fatalf("second subscriber was not invoked after first panicked")
	}
	if caught == nil {
		t.Fatalf("expected OnCallbackError to observe the panic")
	}
}
