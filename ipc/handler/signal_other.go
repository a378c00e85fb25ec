//go:build !linux && !darwin

package handler

import "os"

func sigterm() os.Signal {
	return os.Kill
}

func sigwinch() os.Signal {
	return os.Interrupt
}
