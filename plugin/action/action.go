// Package action implements the built-in Action plugins SPEC_FULL.md
// adds as an out-of-the-box rule vocabulary, grounded one-for-one on
// original_source/daemon/plugins/actions/*.py: each Python
// ActionPlugin subclass becomes one Go type satisfying plugin.Action,
// constructed through a plugin.ActionFactory registered by Register.
package action

import (
	"github.com/sshlog/agent/plugin"
)

// Logger is the minimal surface these actions log through.
type Logger interface {
	Debug(message string, data interface{}, args ...interface{})
	Info(message string, data interface{}, args ...interface{})
	Warning(message string, data interface{}, args ...interface{})
}

// Register adds every built-in action factory to reg, bound to log.
// Mirrors plugin_factory.py's discovery of the actions/ directory,
// except the set is fixed at compile time rather than scanned from
// disk.
func Register(reg *plugin.Registry, log Logger) {
	reg.RegisterAction("log", func(params map[string]string) (plugin.Action, error) {
		return NewLogAction(log, params)
	})
	reg.RegisterAction("logfile", func(params map[string]string) (plugin.Action, error) {
		return NewLogfileAction(params)
	})
	reg.RegisterAction("run_command", func(params map[string]string) (plugin.Action, error) {
		return NewRunCommandAction(params)
	})
	reg.RegisterAction("webhook", func(params map[string]string) (plugin.Action, error) {
		return NewWebhookAction(params)
	})
}
