//go:build linux || darwin

package handler

import (
	"os"
	"syscall"
)

func sigterm() os.Signal {
	return syscall.SIGTERM
}

func sigwinch() os.Signal {
	return syscall.SIGWINCH
}
