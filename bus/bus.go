// Package bus implements the typed in-process publish/subscribe bus
// described in spec.md §4.1: one topic per event.Kind, synchronous
// delivery to publish, in subscription order, with a fixed filtering
// and enrichment policy applied before fan-out.
package bus

import (
	"reflect"
	"sync"

	"github.com/sshlog/agent/event"
)

// Callback receives one delivered event. Implementations must not
// block for long: callbacks run one after another inside Publish, so a
// slow callback delays every later subscriber. A panicking callback is
// recovered and only loses its own delivery.
type Callback func(event.Event)

// Enricher resolves the session fields used to enrich command_* and
// file_upload events before they reach subscribers. ok is false when
// no session is tracked for ptmPID, in which case the bus fills in
// the zero values spec.md §4.1 calls for (empty username, tty_id -1).
type Enricher interface {
	Lookup(ptmPID int) (username string, ttyID int, ok bool)
}

type subscriber struct {
	id uintptr
	fn Callback
}

// Bus is a typed in-process pub/sub, one topic per event.Kind. The
// zero value is not usable; construct with New.
type Bus struct {
	mu   sync.Mutex
	subs map[event.Kind][]subscriber
	enr  Enricher

	// onError, when set, receives a recovered panic from a
	// subscriber callback. Failing callbacks must never abort fan-out.
	onError func(kind event.Kind, r interface{})
}

// New constructs a Bus that enriches command_*/file_upload events
// through enr. enr may be nil, in which case enrichment always
// yields the zero values.
func New(enr Enricher) *Bus {
	return &Bus{
		subs: make(map[event.Kind][]subscriber),
		enr:  enr,
	}
}

// OnCallbackError registers a hook invoked when a subscriber callback
// panics. Used by the daemon to route the failure into the logger
// without letting it escape Publish.
func (b *Bus) OnCallbackError(fn func(kind event.Kind, r interface{})) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers fn for each of kinds, or for every known kind if
// kinds is empty. Subscribing the same fn twice for the same kind is a
// no-op (idempotent per (callback, kind), spec.md §4.1).
func (b *Bus) Subscribe(fn Callback, kinds ...event.Kind) {
	if fn == nil {
		return
	}
	if len(kinds) == 0 {
		kinds = event.All
	}

	id := funcID(fn)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range kinds {
		list := b.subs[k]
		if indexOf(list, id) >= 0 {
			continue
		}
		b.subs[k] = append(list, subscriber{id: id, fn: fn})
	}
}

// Unsubscribe removes fn from each of kinds, or from every known kind
// if kinds is empty.
func (b *Bus) Unsubscribe(fn Callback, kinds ...event.Kind) {
	if fn == nil {
		return
	}
	if len(kinds) == 0 {
		kinds = event.All
	}

	id := funcID(fn)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range kinds {
		list := b.subs[k]
		i := indexOf(list, id)
		if i < 0 {
			continue
		}
		b.subs[k] = append(list[:i:i], list[i+1:]...)
	}
}

// Publish applies the filtering/enrichment policy of spec.md §4.1 and
// then delivers evt to every subscriber of evt.Kind, synchronously,
// in subscription order.
func (b *Bus) Publish(evt event.Event) {
	switch evt.Kind {
	case event.KindConnectionNew:
		// Reserved; never propagated to subscribers.
		return
	case event.KindCommandStart, event.KindCommandFinish:
		if evt.Username == "" {
			// The shell has not attached yet.
			return
		}
	}

	if evt.Kind.Enrichable() {
		evt.Username, evt.TTYID = "", -1
		if b.enr != nil {
			if u, t, ok := b.enr.Lookup(evt.PtmPID); ok {
				evt.Username, evt.TTYID = u, t
			}
		}
	}

	b.mu.Lock()
	list := append([]subscriber(nil), b.subs[evt.Kind]...)
	onErr := b.onError
	b.mu.Unlock()

	for _, s := range list {
		deliverSafely(s.fn, evt, evt.Kind, onErr)
	}
}

func deliverSafely(fn Callback, evt event.Event, kind event.Kind, onErr func(event.Kind, interface{})) {
	defer func() {
		if r := recover(); r != nil && onErr != nil {
			onErr(kind, r)
		}
	}()
	fn(evt)
}

func indexOf(list []subscriber, id uintptr) int {
	for i, s := range list {
		if s.id == id {
			return i
		}
	}
	return -1
}

func funcID(fn Callback) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
