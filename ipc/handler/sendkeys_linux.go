//go:build linux

package handler

import (
	"os"

	"golang.org/x/sys/unix"
)

// injectKey pushes one byte into the kernel's terminal input queue
// for tty via TIOCSTI, the ioctl original_source/daemon/comms/mq_server.py
// uses through Python's fcntl/termios.
func injectKey(tty *os.File, b byte) error {
	return unix.IoctlSetInt(int(tty.Fd()), unix.TIOCSTI, int(b))
}
