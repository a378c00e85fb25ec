package wire

import "github.com/sshlog/agent/event"

// PayloadType is the stable integer enum spec.md §6 assigns to each
// request/response body shape.
type PayloadType int

const (
	SessionListRequest  PayloadType = 1
	SessionListResponse PayloadType = 2

	EventWatchRequest  PayloadType = 101
	EventWatchResponse PayloadType = 102

	ShellSendKeysRequest PayloadType = 201

	KillSessionRequest  PayloadType = 301
	KillSessionResponse PayloadType = 302
)

func (p PayloadType) String() string {
	switch p {
	case SessionListRequest:
		return "SESSION_LIST_REQUEST"
	case SessionListResponse:
		return "SESSION_LIST_RESPONSE"
	case EventWatchRequest:
		return "EVENT_WATCH_REQUEST"
	case EventWatchResponse:
		return "EVENT_WATCH_RESPONSE"
	case ShellSendKeysRequest:
		return "SHELL_SENDKEYS_REQUEST"
	case KillSessionRequest:
		return "KILL_SESSION_REQUEST"
	case KillSessionResponse:
		return "KILL_SESSION_RESPONSE"
	default:
		return "unknown payload type"
	}
}

// Known reports whether p is one of the stable payload type codes.
func (p PayloadType) Known() bool {
	switch p {
	case SessionListRequest, SessionListResponse,
		EventWatchRequest, EventWatchResponse,
		ShellSendKeysRequest,
		KillSessionRequest, KillSessionResponse:
		return true
	default:
		return false
	}
}

// SessionDTO is the projection of session.Session sent to clients by
// ListSessionHandler (spec.md §4.5).
type SessionDTO struct {
	PtmPID           int    `json:"ptm_pid"`
	PtsPID           int    `json:"pts_pid"`
	ShellPID         int    `json:"shell_pid"`
	TTYID            int    `json:"tty_id"`
	StartTime        int64  `json:"start_time"`
	EndTime          int64  `json:"end_time"`
	LastActivityTime int64  `json:"last_activity_time"`
	LastCommand      string `json:"last_command"`
	UserID           int    `json:"user_id"`
	Username         string `json:"username"`
	ClientIP         string `json:"client_ip"`
	ClientPort       int    `json:"client_port"`
	ServerIP         string `json:"server_ip"`
	ServerPort       int    `json:"server_port"`
}

// SessionListRequestBody carries no fields.
type SessionListRequestBody struct {
	PayloadType PayloadType `json:"payload_type"`
}

// SessionListResponseBody is the body of SESSION_LIST_RESPONSE.
type SessionListResponseBody struct {
	PayloadType PayloadType  `json:"payload_type"`
	Sessions    []SessionDTO `json:"sessions"`
}

// EventWatchRequestBody is the body of EVENT_WATCH_REQUEST.
type EventWatchRequestBody struct {
	PayloadType PayloadType  `json:"payload_type"`
	EventTypes  []event.Kind `json:"event_types"`
	PtmPID      *int         `json:"ptm_pid,omitempty"`
}

// EventWatchResponseBody is the body of EVENT_WATCH_RESPONSE.
type EventWatchResponseBody struct {
	PayloadType PayloadType `json:"payload_type"`
	EventType   event.Kind  `json:"event_type"`
	Payload     event.Event `json:"payload_json"`
}

// ShellSendKeysRequestBody is the body of SHELL_SENDKEYS_REQUEST.
type ShellSendKeysRequestBody struct {
	PayloadType PayloadType `json:"payload_type"`
	PtmPID      int         `json:"ptm_pid"`
	Keys        string      `json:"keys"`
	ForceRedraw bool        `json:"force_redraw"`
}

// KillSessionRequestBody is the body of KILL_SESSION_REQUEST.
type KillSessionRequestBody struct {
	PayloadType PayloadType `json:"payload_type"`
	PtmPID      int         `json:"ptm_pid"`
}

// KillSessionResponseBody is the body of KILL_SESSION_RESPONSE.
type KillSessionResponseBody struct {
	PayloadType PayloadType `json:"payload_type"`
	Success     bool        `json:"success"`
}
