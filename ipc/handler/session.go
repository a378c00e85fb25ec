// Package handler implements the router's request workers (spec.md
// §4.5, component C7): ListSessionHandler, KillSessionHandler,
// WatchHandler, and the inline SendKeys side effect. Grounded on
// original_source/daemon/comms/mq_server.py's dispatch branches,
// reimplemented over ipc.Router/ipc.Peer instead of the Python
// ZMQ-backed request thread.
package handler

import (
	"context"
	"os"
	"strconv"

	"github.com/sshlog/agent/ipc"
	"github.com/sshlog/agent/session"
	"github.com/sshlog/agent/wire"
)

// ListSessions handles SESSION_LIST_REQUEST: a snapshot of the
// tracker's sessions, projected into wire DTOs, one response, never
// an error (spec.md §4.5).
func ListSessions(t *session.Tracker) ipc.HandlerFunc {
	return func(ctx context.Context, p *ipc.Peer, env wire.Envelope) {
		sessions := t.List()
		dtos := make([]wire.SessionDTO, 0, len(sessions))
		for _, s := range sessions {
			dtos = append(dtos, wire.SessionDTO{
				PtmPID:           s.PtmPID,
				PtsPID:           s.PtsPID,
				ShellPID:         s.ShellPID,
				TTYID:            s.TTYID,
				StartTime:        s.StartTime,
				EndTime:          s.EndTime,
				LastActivityTime: s.LastActivityTime,
				LastCommand:      s.LastCommand,
				UserID:           s.UserID,
				Username:         s.Username,
				ClientIP:         s.TCPInfo.ClientIP,
				ClientPort:       s.TCPInfo.ClientPort,
				ServerIP:         s.TCPInfo.ServerIP,
				ServerPort:       s.TCPInfo.ServerPort,
			})
		}

		_ = p.Send(wire.Envelope{
			ClientID:      p.ID(),
			CorrelationID: env.CorrelationID,
			PayloadType:   wire.SessionListResponse,
			DTOPayload:    mustEncodeBody(wire.SessionListResponseBody{PayloadType: wire.SessionListResponse, Sessions: dtos}),
		})
	}
}

// KillSession handles KILL_SESSION_REQUEST: SIGTERM if /proc/<ptm_pid>
// exists, never retried or escalated to SIGKILL (spec.md §4.5).
func KillSession() ipc.HandlerFunc {
	return func(ctx context.Context, p *ipc.Peer, env wire.Envelope) {
		var body wire.KillSessionRequestBody
		if err := env.DecodeBody(&body); err != nil {
			return
		}

		success := false
		if procExists(body.PtmPID) {
			if proc, err := os.FindProcess(body.PtmPID); err == nil {
				if proc.Signal(sigterm()) == nil {
					success = true
				}
			}
		}

		_ = p.Send(wire.Envelope{
			ClientID:      p.ID(),
			CorrelationID: env.CorrelationID,
			PayloadType:   wire.KillSessionResponse,
			DTOPayload:    mustEncodeBody(wire.KillSessionResponseBody{PayloadType: wire.KillSessionResponse, Success: success}),
		})
	}
}

func procExists(pid int) bool {
	_, err := os.Stat("/proc/" + strconv.Itoa(pid))
	return err == nil
}
