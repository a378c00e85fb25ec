// Package logger provides the daemon's structured logging, grounded
// on the method shape of the teacher's logger.Logger interface
// (Debug/Info/Warning/Error/Fatal(message, data, args...)) but
// implemented directly over logrus rather than carrying the teacher's
// full hook-plugin framework.
package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface the rest of the daemon depends on.
type Logger interface {
	Debug(message string, data interface{}, args ...interface{})
	Info(message string, data interface{}, args ...interface{})
	Warning(message string, data interface{}, args ...interface{})
	Error(message string, data interface{}, args ...interface{})

	// Fatal logs at FatalLevel and terminates the process (os.Exit),
	// matching the teacher's Logger.Fatal contract.
	Fatal(message string, data interface{}, args ...interface{})

	SetLevel(lvl logrus.Level)
	GetLevel() logrus.Level

	// WithFields returns a derived Logger that always attaches
	// fields in addition to whatever each call site passes as data.
	WithFields(fields logrus.Fields) Logger

	// Clone returns a copy with its own field set. It shares the
	// underlying logrus logger, so hooks and level stay shared: SetLevel
	// on either one changes both.
	Clone() Logger
}

type entry struct {
	l      *logrus.Logger
	fields logrus.Fields
}

// Options configures the destinations wired into New.
type Options struct {
	// Debug sets the minimum level to Debug; otherwise Info.
	Debug bool

	// LogFile, if non-empty, adds a rotating file hook (5 MiB x 5
	// backups, spec.md §6).
	LogFile string

	// Syslog adds a syslog hook where the platform supports it.
	Syslog bool
}

// New constructs a Logger writing to stderr, plus the destinations
// Options enables.
func New(opt Options) (Logger, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stderr)

	if opt.Debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	if opt.LogFile != "" {
		hook, err := newFileHook(opt.LogFile)
		if err != nil {
			return nil, fmt.Errorf("logger: opening log file %q: %w", opt.LogFile, err)
		}
		l.AddHook(hook)
	}

	if opt.Syslog {
		if hook, err := newSyslogHook(); err == nil {
			l.AddHook(hook)
		} else {
			l.Warnf("logger: syslog hook unavailable: %v", err)
		}
	}

	return &entry{l: l, fields: logrus.Fields{}}, nil
}

func (e *entry) log(lvl logrus.Level, message string, data interface{}, args ...interface{}) {
	msg := message
	if len(args) > 0 {
		msg = fmt.Sprintf(message, args...)
	}

	fields := make(logrus.Fields, len(e.fields)+1)
	for k, v := range e.fields {
		fields[k] = v
	}
	if data != nil {
		fields["data"] = data
	}

	e.l.WithFields(fields).Log(lvl, msg)
}

func (e *entry) Debug(message string, data interface{}, args ...interface{}) {
	e.log(logrus.DebugLevel, message, data, args...)
}

func (e *entry) Info(message string, data interface{}, args ...interface{}) {
	e.log(logrus.InfoLevel, message, data, args...)
}

func (e *entry) Warning(message string, data interface{}, args ...interface{}) {
	e.log(logrus.WarnLevel, message, data, args...)
}

func (e *entry) Error(message string, data interface{}, args ...interface{}) {
	e.log(logrus.ErrorLevel, message, data, args...)
}

func (e *entry) Fatal(message string, data interface{}, args ...interface{}) {
	e.log(logrus.FatalLevel, message, data, args...)
	os.Exit(1)
}

func (e *entry) SetLevel(lvl logrus.Level) {
	e.l.SetLevel(lvl)
}

func (e *entry) GetLevel() logrus.Level {
	return e.l.GetLevel()
}

func (e *entry) WithFields(fields logrus.Fields) Logger {
	merged := make(logrus.Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &entry{l: e.l, fields: merged}
}

func (e *entry) Clone() Logger {
	fields := make(logrus.Fields, len(e.fields))
	for k, v := range e.fields {
		fields[k] = v
	}
	return &entry{l: e.l, fields: fields}
}
