package ipc

import (
	"encoding/json"
	"net"
	"sync"

	"github.com/sshlog/agent/wire"
)

// Peer is one connected client, identified by an id the router
// assigns on accept (spec.md §4.4: "the server distinguishes clients
// by a peer identifier it observes on the transport"). Its out
// channel is the per-peer response queue: multiple handler goroutines
// may enqueue onto it (multi-producer), while a single writer
// goroutine drains it onto the wire (single-consumer).
type Peer struct {
	id   string
	conn net.Conn

	mu     sync.Mutex
	out    chan []byte
	closed bool
}

func newPeer(id string, conn net.Conn) *Peer {
	return &Peer{
		id:   id,
		conn: conn,
		out:  make(chan []byte, 64),
	}
}

// NewPeer constructs a Peer directly, for tests that exercise a
// handler without running a full Router. Production code never calls
// this: Router.serve assigns peer ids itself on accept.
func NewPeer(id string, conn net.Conn) *Peer {
	return newPeer(id, conn)
}

// ID is the client_id this peer's responses and correlation bookkeeping
// are addressed to.
func (p *Peer) ID() string {
	return p.id
}

// Send enqueues env onto this peer's response queue. It returns nil
// even if the peer has already closed or shutdown began: per spec.md
// §4.4 invariant (c), no response is emitted after shutdown, so a
// send against a closed peer is a silent no-op rather than an error a
// handler must react to.
func (p *Peer) Send(env wire.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	body = append(body, EOL)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}

	select {
	case p.out <- body:
	default:
		// Response queue full: the peer isn't draining. Drop rather
		// than block a worker goroutine indefinitely.
	}
	return nil
}

func (p *Peer) closeOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.out)
}

// Close stops this peer's response queue. Router.serve calls this
// once its read loop ends; tests that construct a Peer with NewPeer
// should call it when done so RunWriter returns.
func (p *Peer) Close() {
	p.closeOut()
}

// RunWriter drains the response queue onto the underlying connection
// until Close is called or a write fails. Router.serve does not call
// it (serve drains the queue with its own writer goroutine); tests
// using NewPeer must run it themselves to observe a handler's response.
func (p *Peer) RunWriter() {
	for frame := range p.out {
		if _, err := p.conn.Write(frame); err != nil {
			return
		}
	}
}
