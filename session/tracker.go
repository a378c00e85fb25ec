// Package session maintains the derived session directory (spec.md
// §3, §4.2): one record per live ptm_pid, kept current by subscribing
// to the event bus.
package session

import (
	"sync"
	"time"

	"github.com/sshlog/agent/bus"
	"github.com/sshlog/agent/event"
)

// Session is the derived record the tracker keeps for one live SSH
// connection.
type Session struct {
	PtmPID   int
	PtsPID   int
	ShellPID int
	TTYID    int
	UserID   int
	Username string

	StartTime int64
	EndTime   int64
	TCPInfo   event.TCPInfo

	LastActivityTime int64
	LastCommand      string
}

// Tracker is the derived pid -> session index. The zero value is not
// usable; construct with New.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[int]Session
	now      func() int64
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{
		sessions: make(map[int]Session),
		now:      nowMillis,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Attach subscribes the tracker's update handlers to b for the event
// kinds spec.md §4.2 lists: connection_new, connection_established,
// connection_close, terminal_update, command_start.
func (t *Tracker) Attach(b *bus.Bus) {
	b.Subscribe(t.handle,
		event.KindConnectionNew,
		event.KindConnectionEstablished,
		event.KindConnectionClose,
		event.KindTerminalUpdate,
		event.KindCommandStart,
	)
}

func (t *Tracker) handle(evt event.Event) {
	switch evt.Kind {
	case event.KindConnectionNew:
		t.onConnectionNew(evt)
	case event.KindConnectionEstablished:
		t.onConnectionEstablished(evt)
	case event.KindConnectionClose:
		t.onConnectionClose(evt)
	case event.KindTerminalUpdate:
		t.onTerminalUpdate(evt)
	case event.KindCommandStart:
		t.onCommandStart(evt)
	}
}

func (t *Tracker) onConnectionNew(evt event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[evt.PtmPID] = fromEvent(evt)
}

func (t *Tracker) onConnectionEstablished(evt event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := fromEvent(evt)
	s.LastActivityTime = t.now()
	s.LastCommand = ""
	t.sessions[evt.PtmPID] = s
}

func (t *Tracker) onConnectionClose(evt event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, evt.PtmPID)
}

func (t *Tracker) onTerminalUpdate(evt event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[evt.PtmPID]; ok {
		s.LastActivityTime = t.now()
		t.sessions[evt.PtmPID] = s
	}
}

func (t *Tracker) onCommandStart(evt event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[evt.PtmPID]; ok {
		s.LastCommand = evt.Args
		t.sessions[evt.PtmPID] = s
	}
}

func fromEvent(evt event.Event) Session {
	return Session{
		PtmPID:    evt.PtmPID,
		PtsPID:    evt.PtsPID,
		ShellPID:  evt.ShellPID,
		TTYID:     evt.TTYID,
		UserID:    evt.UserID,
		Username:  evt.Username,
		StartTime: evt.StartTime,
		EndTime:   evt.EndTime,
		TCPInfo:   evt.TCPInfo,
	}
}

// Get returns a copy of the session tracked for ptmPID, if any.
func (t *Tracker) Get(ptmPID int) (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[ptmPID]
	return s, ok
}

// List returns an immutable snapshot of every tracked session.
func (t *Tracker) List() []Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s)
	}
	return out
}

// Lookup implements bus.Enricher: it resolves the username/tty_id
// pair the bus attaches to command_*/file_upload events.
func (t *Tracker) Lookup(ptmPID int) (username string, ttyID int, ok bool) {
	s, found := t.Get(ptmPID)
	if !found {
		return "", -1, false
	}
	return s.Username, s.TTYID, true
}
