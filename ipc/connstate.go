package ipc

// ConnState mirrors the stage a connection is in, in the shape of the
// teacher's socket.ConnState enum (socket/socket_test.go), trimmed to
// the stages this router's single read/dispatch/write loop passes
// through.
type ConnState uint8

const (
	ConnectionNew ConnState = iota
	ConnectionRead
	ConnectionHandler
	ConnectionWrite
	ConnectionClose
)

func (s ConnState) String() string {
	switch s {
	case ConnectionNew:
		return "New Connection"
	case ConnectionRead:
		return "Read Incoming Stream"
	case ConnectionHandler:
		return "Run HandlerFunc"
	case ConnectionWrite:
		return "Write Outgoing Stream"
	case ConnectionClose:
		return "Close Connection"
	default:
		return "unknown connection state"
	}
}

// DefaultBufferSize matches the teacher's socket.DefaultBufferSize.
const DefaultBufferSize = 32 * 1024

// EOL is the frame delimiter for the newline-delimited JSON envelopes
// this router reads and writes, matching the teacher's socket.EOL.
const EOL = '\n'
