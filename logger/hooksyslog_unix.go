//go:build linux || darwin

package logger

import (
	"log/syslog"

	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
)

func newSyslogHook() (logrus.Hook, error) {
	return lsyslog.NewSyslogHook("", "", syslog.LOG_DAEMON, "sshlogd")
}
