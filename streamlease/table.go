// Package streamlease implements the "active streams" lease table
// from spec.md §4.3: a correlation_id -> last-seen-monotonic map that
// keeps a client's Watch subscription alive only while the client
// keeps refreshing it.
package streamlease

import (
	"sync"
	"time"
)

// MaxLease is the liveness window of a lease (spec.md GLOSSARY). A
// lease lapses strictly after this much time has elapsed since its
// last refresh — exactly MaxLease is still live (spec.md §8: "> , not
// >=, is the live predicate").
const MaxLease = 1 * time.Second

// sweepAge resolves the Open Question in spec.md §9: the source
// has no eviction, so entries older than this are dropped periodically
// to bound memory.
const sweepAge = 60 * time.Second

// Table is the lease table. The zero value is not usable; construct
// with New.
type Table struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	now      func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// New constructs an empty Table.
func New() *Table {
	return &Table{
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Refresh sets last_seen[id] = now, creating the lease if it does not
// already exist.
func (t *Table) Refresh(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen[id] = t.now()
}

// IsActive reports whether id's lease is live: now - last_seen <=
// MaxLease. An id that was never refreshed is not active.
func (t *Table) IsActive(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastSeen[id]
	if !ok {
		return false
	}
	return t.now().Sub(ts) <= MaxLease
}

// Count reports the number of leases currently tracked, live or not
// yet swept. Used to feed the daemon's active-watch-leases gauge.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}

// Drop removes id's lease immediately, regardless of liveness. Used by
// a WatchHandler on its own exit path so a reused correlation_id does
// not appear briefly active from a stale entry.
func (t *Table) Drop(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastSeen, id)
}

// StartSweeper launches a background goroutine that evicts leases
// whose last_seen is older than 60s, once per interval, until Stop is
// called. It is safe to call at most once per Table.
func (t *Table) StartSweeper(interval time.Duration) {
	t.stop = make(chan struct{})
	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				t.sweep()
			}
		}
	}()
}

// Stop halts the sweeper goroutine started by StartSweeper and waits
// for it to exit. Safe to call even if StartSweeper was never called.
func (t *Table) Stop() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.wg.Wait()
}

func (t *Table) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-sweepAge)
	for id, ts := range t.lastSeen {
		if ts.Before(cutoff) {
			delete(t.lastSeen, id)
		}
	}
}
