package handler

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/sshlog/agent/ipc"
	"github.com/sshlog/agent/session"
	"github.com/sshlog/agent/wire"
)

// Logger is the minimal surface SendKeys needs to log-and-drop, matching
// ipc.Logger's duck-typed shape.
type Logger interface {
	Warning(message string, data interface{}, args ...interface{})
	Error(message string, data interface{}, args ...interface{})
}

// SendKeys returns the inline SHELL_SENDKEYS_REQUEST worker (spec.md
// §4.5). It never sends a response. enabled gates the whole feature
// behind the daemon's --enable-session-injection flag: when disabled,
// every request is dropped with a warning.
func SendKeys(t *session.Tracker, log Logger, enabled func() bool) ipc.HandlerFunc {
	return func(ctx context.Context, p *ipc.Peer, env wire.Envelope) {
		if !enabled() {
			if log != nil {
				log.Warning("ipc: session injection disabled, dropping SendKeys", nil)
			}
			return
		}

		var body wire.ShellSendKeysRequestBody
		if err := env.DecodeBody(&body); err != nil {
			return
		}

		sess, ok := t.Get(body.PtmPID)
		if !ok {
			if log != nil {
				log.Error("ipc: cannot find session for SendKeys", body.PtmPID)
			}
			return
		}
		if sess.TTYID < 0 {
			if log != nil {
				log.Error("ipc: invalid tty_id for SendKeys", sess.TTYID)
			}
			return
		}

		if body.ForceRedraw {
			if proc, err := os.FindProcess(sess.ShellPID); err == nil {
				_ = proc.Signal(sigwinch())
			}
		}

		if err := writeKeys(sess.TTYID, body.Keys); err != nil && log != nil {
			log.Error("ipc: TIOCSTI injection failed", err)
		}
	}
}

func writeKeys(ttyID int, keys string) error {
	path := "/dev/pts/" + strconv.Itoa(ttyID)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	for i := 0; i < len(keys); i++ {
		if err := injectKey(f, keys[i]); err != nil {
			return fmt.Errorf("injecting byte %d: %w", i, err)
		}
	}
	return nil
}
