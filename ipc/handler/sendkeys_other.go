//go:build !linux

package handler

import (
	"errors"
	"os"
)

func injectKey(tty *os.File, b byte) error {
	return errors.New("TIOCSTI keystroke injection is only supported on Linux")
}
