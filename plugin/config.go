package plugin

import (
	"fmt"

	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/internal/errs"
	"gopkg.in/yaml.v3"
)

// rawConfig is the YAML shape of one conf.d/*.yaml file, matching
// plugin_manager.py's _parse_yaml: a list of named, reusable actions
// and a list of event rules referencing them.
type rawConfig struct {
	Actions []rawAction `yaml:"actions"`
	Events  []rawEvent  `yaml:"events"`
}

type rawAction struct {
	Action string            `yaml:"action"`
	Plugin string            `yaml:"plugin"`
	Params map[string]string `yaml:"params"`
}

type rawEvent struct {
	Event    string                 `yaml:"event"`
	Triggers []string               `yaml:"triggers"`
	Filters  map[string]interface{} `yaml:"filters"`
	Actions  []rawEventAction       `yaml:"actions"`
}

type rawEventAction struct {
	Action string            `yaml:"action"`
	Params map[string]string `yaml:"params"`
}

// FilterFactory builds a Filter from a config value (a scalar, list,
// or map — whatever the filter_name's argument looks like in YAML).
type FilterFactory func(arg interface{}) (Filter, error)

// ActionFactory builds an Action from an action plugin's parameter
// bag (action_name's `params:` map, merged with a rule's inline
// overrides).
type ActionFactory func(params map[string]string) (Action, error)

// Registry maps plugin names to factories, the Go counterpart of
// plugin_factory.py's search_plugins() scan — except names are
// registered by explicit filter.Register and action.Register calls
// rather than discovered by walking a directory of Python modules.
type Registry struct {
	Filters map[string]FilterFactory
	Actions map[string]ActionFactory
}

// NewRegistry returns an empty Registry ready for RegisterFilter /
// RegisterAction calls.
func NewRegistry() *Registry {
	return &Registry{
		Filters: make(map[string]FilterFactory),
		Actions: make(map[string]ActionFactory),
	}
}

func (r *Registry) RegisterFilter(name string, f FilterFactory) {
	r.Filters[name] = f
}

func (r *Registry) RegisterAction(name string, f ActionFactory) {
	r.Actions[name] = f
}

// LoadRules parses raw YAML bytes into validated Rules, resolving
// every action/filter reference against reg. It mirrors
// plugin_manager.py's _parse_yaml + the action/filter attach pass
// that follows it, accumulating every error rather than stopping at
// the first (spec.md §4.6: validation runs in full before runtime).
func LoadRules(raw []byte, reg *Registry) ([]Rule, []error) {
	var cfg rawConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, []error{fmt.Errorf("%w: parsing plugin config: %v", errs.ErrConfig, err)}
	}

	namedActions := make(map[string]rawAction, len(cfg.Actions))
	var errsOut []error
	for _, a := range cfg.Actions {
		if _, dup := namedActions[a.Action]; dup {
			errsOut = append(errsOut, fmt.Errorf("%w: duplicate action name %q", errs.ErrConfig, a.Action))
			continue
		}
		namedActions[a.Action] = a
	}

	var rules []Rule
	for _, ev := range cfg.Events {
		rule := Rule{Name: ev.Event}

		for _, tr := range ev.Triggers {
			k := event.Kind(tr)
			rule.Triggers = append(rule.Triggers, k)
		}

		for name, arg := range ev.Filters {
			factory, ok := reg.Filters[name]
			if !ok {
				errsOut = append(errsOut, fmt.Errorf("%w: missing filter plugin %q referenced by event %q", errs.ErrConfig, name, ev.Event))
				continue
			}
			f, err := factory(arg)
			if err != nil {
				errsOut = append(errsOut, fmt.Errorf("%w: building filter %q for event %q: %v", errs.ErrConfig, name, ev.Event, err))
				continue
			}
			rule.Filters = append(rule.Filters, FilterRef{Name: name, Filter: f})
		}

		for _, actionRef := range ev.Actions {
			def, ok := namedActions[actionRef.Action]
			if !ok {
				errsOut = append(errsOut, fmt.Errorf("%w: missing action definition %q referenced by event %q", errs.ErrConfig, actionRef.Action, ev.Event))
				continue
			}
			factory, ok := reg.Actions[def.Plugin]
			if !ok {
				errsOut = append(errsOut, fmt.Errorf("%w: missing action plugin %q for action %q", errs.ErrConfig, def.Plugin, actionRef.Action))
				continue
			}

			params := mergeParams(def.Params, actionRef.Params)
			a, err := factory(params)
			if err != nil {
				errsOut = append(errsOut, fmt.Errorf("%w: building action %q: %v", errs.ErrConfig, actionRef.Action, err))
				continue
			}
			rule.Actions = append(rule.Actions, ActionRef{Name: actionRef.Action, Action: a, Params: params})
		}

		rules = append(rules, rule)
	}

	if v := Validate(rules); len(v) > 0 {
		errsOut = append(errsOut, v...)
	}

	if len(errsOut) > 0 {
		return nil, errsOut
	}
	return rules, nil
}

func mergeParams(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
