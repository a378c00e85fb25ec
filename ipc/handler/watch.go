package handler

import (
	"context"
	"sync"
	"time"

	"github.com/sshlog/agent/bus"
	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/ipc"
	"github.com/sshlog/agent/streamlease"
	"github.com/sshlog/agent/wire"
)

// pollInterval is how often a running WatchHandler checks its lease
// and the server's shutdown signal, matching mq_server.py's
// WatchHandler loop ("loop sleeping briefly", spec.md §4.5).
const pollInterval = 100 * time.Millisecond

// Watch returns the EVENT_WATCH_REQUEST worker. It coalesces repeat
// requests that share a correlation_id into a lease refresh rather
// than starting a second handler (spec.md §4.4/§4.5).
func Watch(b *bus.Bus, leases *streamlease.Table, alive func() bool) ipc.HandlerFunc {
	running := newRunningSet()

	return func(ctx context.Context, p *ipc.Peer, env wire.Envelope) {
		var body wire.EventWatchRequestBody
		if err := env.DecodeBody(&body); err != nil {
			return
		}

		leaseID := p.ID() + ":" + env.CorrelationID
		leases.Refresh(leaseID)

		if !running.startIfAbsent(leaseID) {
			return
		}

		go runWatch(ctx, b, leases, alive, leaseID, p, env.CorrelationID, body, running)
	}
}

func runWatch(
	ctx context.Context,
	b *bus.Bus,
	leases *streamlease.Table,
	alive func() bool,
	leaseID string,
	p *ipc.Peer,
	correlationID string,
	body wire.EventWatchRequestBody,
	running *runningSet,
) {
	defer running.finish(leaseID)

	deliver := func(ev event.Event) {
		if body.PtmPID != nil && ev.PtmPID != *body.PtmPID {
			return
		}
		_ = p.Send(wire.Envelope{
			ClientID:      p.ID(),
			CorrelationID: correlationID,
			PayloadType:   wire.EventWatchResponse,
			DTOPayload: mustEncodeBody(wire.EventWatchResponseBody{
				PayloadType: wire.EventWatchResponse,
				EventType:   ev.Kind,
				Payload:     ev,
			}),
		})
	}

	b.Subscribe(deliver, body.EventTypes...)
	defer b.Unsubscribe(deliver)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !alive() {
				return
			}
			if !leases.IsActive(leaseID) {
				return
			}
		}
	}
}

// runningSet tracks which (peer id, correlation id) pairs already have a live
// WatchHandler goroutine, so a refresh request never launches a
// second one (spec.md §4.4).
type runningSet struct {
	mu sync.Mutex
	m  map[string]bool
}

func newRunningSet() *runningSet {
	return &runningSet{m: make(map[string]bool)}
}

func (r *runningSet) startIfAbsent(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m[id] {
		return false
	}
	r.m[id] = true
	return true
}

func (r *runningSet) finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
}
