package action

import (
	"fmt"

	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/plugin"
)

// LogAction writes the triggering event to the daemon log at Info
// level, grounded on logfile_action.py's simplest case (no dedicated
// file, just structured logging of the event).
type LogAction struct {
	log     Logger
	message string
}

// NewLogAction builds a LogAction. params["message"], if set, is
// rendered through plugin.Render before logging; otherwise the raw
// event is logged.
func NewLogAction(log Logger, params map[string]string) (*LogAction, error) {
	if log == nil {
		return nil, fmt.Errorf("action: log action requires a logger")
	}
	return &LogAction{log: log, message: params["message"]}, nil
}

func (a *LogAction) Execute(evt event.Event) error {
	if a.message != "" {
		a.log.Info(plugin.Render(a.message, evt), nil)
		return nil
	}
	a.log.Info("plugin action triggered", evt)
	return nil
}
