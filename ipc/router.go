// Package ipc implements the daemon's Unix-domain socket router
// (spec.md §4.4, component C6): a front pipe that accepts peer
// frames, a back pipe that feeds worker tasks, a per-peer response
// queue, and a control pipe that unblocks the router on shutdown.
//
// Grounded on the teacher's socket package (socket.ConnState,
// socket.ErrorFilter, socket.DefaultBufferSize, socket.EOL — see
// connstate.go/errorfilter.go) and on the front/back-pipe decomposition
// of original_source/daemon/comms/mq_server.py, reimplemented over
// net.Conn instead of ZMQ sockets.
package ipc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"
	"sync"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"github.com/sshlog/agent/internal/errs"
	"github.com/sshlog/agent/wire"
)

// defaultSocketMode is used when Config.Mode is unset (the os.FileMode
// zero value).
const defaultSocketMode os.FileMode = 0o660

// Logger is the minimal surface Router needs; logger.Logger satisfies
// it by duck typing, matching bus.Enricher's pattern.
type Logger interface {
	Warning(message string, data interface{}, args ...interface{})
	Error(message string, data interface{}, args ...interface{})
	Debug(message string, data interface{}, args ...interface{})
}

// Config is the Unix-socket listener's configuration, trimmed from
// the teacher's socket/config.Server shape (Network, Address,
// PermFile, GroupPerm) down to what a Unix-domain listener needs.
type Config struct {
	SocketPath string
	GroupPerm  string      // empty disables the chown step
	Mode       os.FileMode // zero value falls back to defaultSocketMode
}

// HandlerFunc processes one decoded request on the back pipe. It may
// call p.Send zero or more times (zero for the inline SendKeys
// handler, one for one-shot handlers, many over time for WatchHandler).
type HandlerFunc func(ctx context.Context, p *Peer, env wire.Envelope)

// Router is the IPC front pipe / back pipe / control pipe.
type Router struct {
	cfg Config
	log Logger

	mu       sync.RWMutex
	handlers map[wire.PayloadType]HandlerFunc

	ln       net.Listener
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Router. log may be nil, in which case the router
// logs nothing.
func New(cfg Config, log Logger) *Router {
	return &Router{
		cfg:      cfg,
		log:      log,
		handlers: make(map[wire.PayloadType]HandlerFunc),
		stopCh:   make(chan struct{}),
	}
}

// Register installs h as the worker for payload_type pt, per spec.md
// §4.4's dispatch table. A later call for the same pt replaces the
// earlier one.
func (r *Router) Register(pt wire.PayloadType, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[pt] = h
}

func (r *Router) handlerFor(pt wire.PayloadType) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[pt]
	return h, ok
}

// Listen binds the Unix-domain socket at cfg.SocketPath (mode cfg.Mode,
// 0660 when unset; owner root:<group>, soft-failing if the group does not exist per
// spec.md §4.4), then runs the accept loop (front pipe) until ctx is
// canceled or Shutdown is called.
func (r *Router) Listen(ctx context.Context) error {
	ln, err := net.Listen("unix", r.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("%w: binding %s: %v", errs.ErrFatalStartup, r.cfg.SocketPath, err)
	}
	r.ln = ln

	if err := applySocketPerms(r.cfg.SocketPath, r.cfg.GroupPerm, r.cfg.Mode, r.log); err != nil {
		_ = ln.Close()
		return err
	}

	go func() {
		<-r.stopCh
		_ = r.ln.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			r.Shutdown(context.Background())
		case <-r.stopCh:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ErrorFilter(err) == nil {
				return nil
			}
			select {
			case <-r.stopCh:
				return nil
			default:
			}
			if r.log != nil {
				r.log.Error("ipc: accept failed", err)
			}
			continue
		}

		r.wg.Add(1)
		go r.serve(ctx, conn)
	}
}

// Shutdown closes the control pipe: the listener stops accepting, and
// Shutdown blocks (up to ctx's deadline) until every in-flight
// connection has drained. No response is sent to any peer after this
// returns (spec.md §4.4 invariant c).
func (r *Router) Shutdown(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stopCh) })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Router) serve(ctx context.Context, conn net.Conn) {
	defer r.wg.Done()
	defer conn.Close()

	id, err := uuid.GenerateUUID()
	if err != nil {
		id = conn.RemoteAddr().String()
	}
	peer := newPeer(id, conn)

	// Closing stopCh expires the read deadline, which ends a Scan that
	// is blocked waiting for the peer's next frame.
	stopRead := make(chan struct{})
	defer close(stopRead)
	go func() {
		select {
		case <-r.stopCh:
			_ = conn.SetReadDeadline(time.Now())
		case <-stopRead:
		}
	}()

	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		for frame := range peer.out {
			if _, err := conn.Write(frame); err != nil {
				if ErrorFilter(err) != nil && r.log != nil {
					r.log.Debug("ipc: write to peer failed", err)
				}
				return
			}
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, DefaultBufferSize), DefaultBufferSize*4)

	var handlersWG sync.WaitGroup
	for scanner.Scan() {
		select {
		case <-r.stopCh:
			peer.closeOut()
			handlersWG.Wait()
			writerWG.Wait()
			return
		default:
		}

		raw := append([]byte(nil), scanner.Bytes()...)
		env, err := wire.Decode(raw)
		if err != nil {
			if r.log != nil {
				r.log.Warning("ipc: dropping malformed frame", err)
			}
			continue
		}

		h, ok := r.handlerFor(env.PayloadType)
		if !ok {
			if r.log != nil {
				r.log.Warning("ipc: no handler registered", env.PayloadType)
			}
			continue
		}

		handlersWG.Add(1)
		go func() {
			defer handlersWG.Done()
			h(ctx, peer, env)
		}()
	}

	handlersWG.Wait()
	peer.closeOut()
	writerWG.Wait()
}

func applySocketPerms(path, group string, mode os.FileMode, log Logger) error {
	if mode == 0 {
		mode = defaultSocketMode
	}
	if err := chmodSocket(path, mode); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", errs.ErrFatalStartup, path, err)
	}
	if group == "" {
		return nil
	}

	g, err := user.LookupGroup(group)
	if err != nil {
		if log != nil {
			log.Warning("ipc: socket group does not exist, skipping chown", group)
		}
		return nil
	}

	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		if log != nil {
			log.Warning("ipc: unparsable gid, skipping chown", g.Gid)
		}
		return nil
	}

	return chownSocket(path, gid)
}
