package plugin_test

import (
	"testing"

	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/plugin"
	"github.com/sshlog/agent/plugin/filter"
)

func testRegistry() *plugin.Registry {
	reg := plugin.NewRegistry()
	reg.RegisterFilter("command_name", func(arg interface{}) (plugin.Filter, error) {
		name, _ := arg.(string)
		return filter.CommandName{Match: []string{name}}, nil
	})
	reg.RegisterAction("log", func(params map[string]string) (plugin.Action, error) {
		return &recordingAction{}, nil
	})
	return reg
}

func TestLoadRules_ValidConfig(t *testing.T) {
	yamlDoc := `
actions:
  - action: notify
    plugin: log
events:
  - event: watch_ls
    triggers: [command_start]
    filters:
      command_name: ls
    actions:
      - action: notify
`
	rules, errs := plugin.LoadRules([]byte(yamlDoc), testRegistry())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(rules) != 1 || rules[0].Name != "watch_ls" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
	if len(rules[0].Triggers) != 1 || rules[0].Triggers[0] != event.KindCommandStart {
		t.Fatalf("unexpected triggers: %+v", rules[0].Triggers)
	}
}

func TestLoadRules_MissingFilterPluginIsReported(t *testing.T) {
	yamlDoc := `
events:
  - event: e1
    triggers: [command_start]
    filters:
      nonexistent_filter: foo
`
	_, errs := plugin.LoadRules([]byte(yamlDoc), testRegistry())
	if len(errs) == 0 {
		t.Fatalf("expected an error for a missing filter plugin")
	}
}

func TestLoadRules_MissingActionDefinitionIsReported(t *testing.T) {
	yamlDoc := `
events:
  - event: e1
    triggers: [command_start]
    actions:
      - action: does_not_exist
`
	_, errs := plugin.LoadRules([]byte(yamlDoc), testRegistry())
	if len(errs) == 0 {
		t.Fatalf("expected an error for a missing action definition")
	}
}
