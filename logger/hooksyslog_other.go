//go:build !linux && !darwin

package logger

import (
	"errors"

	"github.com/sirupsen/logrus"
)

func newSyslogHook() (logrus.Hook, error) {
	return nil, errors.New("syslog is not supported on this platform")
}
