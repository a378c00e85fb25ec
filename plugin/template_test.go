package plugin_test

import (
	"testing"

	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/plugin"
)

func TestRender_SubstitutesKnownFields(t *testing.T) {
	evt := event.Event{Username: "alice", Filename: "ls", ExitCode: 1}
	out := plugin.Render("user {{username}} ran {{filename}} (exit {{exit_code}})", evt)
	if out != "user alice ran ls (exit 1)" {
		t.Fatalf("unexpected render: %q", out)
	}
}

func TestRender_LeavesUnknownPlaceholdersUntouched(t *testing.T) {
	out := plugin.Render("{{not_a_field}}", event.Event{})
	if out != "{{not_a_field}}" {
		t.Fatalf("expected unknown placeholder to remain, got %q", out)
	}
}
