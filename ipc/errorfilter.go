package ipc

import "strings"

// ErrorFilter drops the noisy "use of closed network connection"
// error net.Conn returns when a peer's read races the router's own
// Shutdown, matching the teacher's socket.ErrorFilter.
func ErrorFilter(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "use of closed network connection") {
		return nil
	}
	return err
}
