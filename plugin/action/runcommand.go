package action

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/plugin"
)

// RunCommandAction execs an external command for every matching
// event, grounded on run_command_action.py: each argument is rendered
// through the same {{field}} templating as the Python original's
// _insert_event_data before exec.
type RunCommandAction struct {
	command string
	args    []string
	timeout time.Duration
}

// NewRunCommandAction builds a RunCommandAction. params["command"] is
// required; params["args"] is a comma-separated argument list (may
// contain {{field}} placeholders); params["timeout_seconds"] is
// optional (0 = no timeout, matching the Python default of None).
func NewRunCommandAction(params map[string]string) (*RunCommandAction, error) {
	command := params["command"]
	if command == "" {
		return nil, fmt.Errorf("action: run_command action requires params.command")
	}

	var args []string
	if raw := params["args"]; raw != "" {
		for _, a := range strings.Split(raw, ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}

	var timeout time.Duration
	if raw := params["timeout_seconds"]; raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("action: run_command action params.timeout_seconds: %w", err)
		}
		timeout = time.Duration(secs) * time.Second
	}

	return &RunCommandAction{command: command, args: args, timeout: timeout}, nil
}

func (a *RunCommandAction) Execute(evt event.Event) error {
	rendered := make([]string, len(a.args))
	for i, arg := range a.args {
		rendered[i] = plugin.Render(arg, evt)
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if a.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, a.command, rendered...)
	return cmd.Run()
}
