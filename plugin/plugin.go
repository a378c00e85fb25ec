// Package plugin implements the declarative action/filter runtime of
// spec.md §4.6 (component C8): YAML rules map event triggers through
// filters to actions, grounded on
// original_source/daemon/plugins/common/plugin.py's EventPlugin /
// FilterPlugin / ActionPlugin classes and
// original_source/daemon/plugins/common/plugin_manager.py's
// validation pass.
package plugin

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/sshlog/agent/bus"
	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/internal/errs"
)

// Filter decides whether a delivered event should continue on to the
// rule's actions. It mirrors the teacher's FilterPlugin capability:
// Triggers restricts which event kinds the filter is evaluated for.
type Filter interface {
	Triggers() []event.Kind
	Filter(evt event.Event) bool
}

// Action performs a side effect for an event that passed every
// filter. It mirrors the teacher's ActionPlugin.execute.
type Action interface {
	Execute(evt event.Event) error
}

// ActionRef binds a named Action to one event rule, with inline
// parameter overrides a concrete action implementation may use when
// rendering its own templates.
type ActionRef struct {
	Name   string
	Action Action
	Params map[string]string
}

// FilterRef binds a named Filter to one event rule.
type FilterRef struct {
	Name   string
	Filter Filter
}

// Rule is one validated `events:` entry (spec.md §4.6).
type Rule struct {
	Name     string
	Triggers []event.Kind
	Filters  []FilterRef
	Actions  []ActionRef
}

// Runtime wires validated Rules to the bus: one EventSubscription per
// rule, all actions shared across a bounded worker pool sized
// CPU-count x 16 (original_source/daemon/plugins/common/plugin.py's
// action_threadpool_executor).
type Runtime struct {
	log      Logger
	pool     *workerPool
	subs     []*eventSubscription
	mu       sync.Mutex
	onAction func(actionName string, err error)
}

// OnActionExecuted registers fn to be called after every action runs
// (err is nil on success), e.g. to feed a metrics counter. Must be
// called before Start/Reload to apply to their subscriptions.
func (rt *Runtime) OnActionExecuted(fn func(actionName string, err error)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onAction = fn
}

// Logger is the minimal surface Runtime needs.
type Logger interface {
	Debug(message string, data interface{}, args ...interface{})
	Warning(message string, data interface{}, args ...interface{})
	Error(message string, data interface{}, args ...interface{})
}

// New constructs an empty Runtime. Build rules with LoadRules and pass
// them to Start to subscribe them to a bus.
func New(log Logger) *Runtime {
	return &Runtime{
		log:  log,
		pool: newWorkerPool(runtime.NumCPU() * 16),
	}
}

// Start validates rules (returning every validation error accumulated,
// per spec.md §4.6's "done before runtime") and, if none, subscribes
// one EventSubscription per rule to b.
func (rt *Runtime) Start(b *bus.Bus, rules []Rule) []error {
	if errsList := Validate(rules); len(errsList) > 0 {
		return errsList
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	for _, rule := range rules {
		sub := newEventSubscription(rule, rt.pool, rt.log, rt.onAction)
		sub.attach(b)
		rt.subs = append(rt.subs, sub)
	}
	return nil
}

// Reload tears down every running subscription and replaces them with
// ones built from rules, re-validating first. This is the plugin
// hot-reload SPEC_FULL.md adds on top of spec.md: conf.d/ edits take
// effect without a daemon restart.
func (rt *Runtime) Reload(b *bus.Bus, rules []Rule) []error {
	if errsList := Validate(rules); len(errsList) > 0 {
		return errsList
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	for _, sub := range rt.subs {
		sub.detach(b)
	}
	rt.subs = rt.subs[:0]

	for _, rule := range rules {
		sub := newEventSubscription(rule, rt.pool, rt.log, rt.onAction)
		sub.attach(b)
		rt.subs = append(rt.subs, sub)
	}
	return nil
}

// Shutdown detaches every subscription and stops the worker pool.
func (rt *Runtime) Shutdown(b *bus.Bus) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for _, sub := range rt.subs {
		sub.detach(b)
	}
	rt.subs = nil
	rt.pool.stop()
}

// Validate checks rules against spec.md §4.6's validation list:
// no duplicate rule names, every trigger a known EventKind, and every
// filter declaring a non-empty intersection between its own triggers
// and the rule's triggers.
func Validate(rules []Rule) []error {
	var out []error

	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			out = append(out, fmt.Errorf("%w: rule has no name", errs.ErrConfig))
			continue
		}
		if seen[r.Name] {
			out = append(out, fmt.Errorf("%w: duplicate event rule name %q", errs.ErrConfig, r.Name))
			continue
		}
		seen[r.Name] = true

		if len(r.Triggers) == 0 {
			out = append(out, fmt.Errorf("%w: rule %q has no triggers", errs.ErrConfig, r.Name))
		}
		for _, k := range r.Triggers {
			if !k.Valid() {
				out = append(out, fmt.Errorf("%w: rule %q references unknown trigger %q", errs.ErrConfig, r.Name, k))
			}
		}

		for _, fr := range r.Filters {
			if fr.Filter == nil {
				out = append(out, fmt.Errorf("%w: rule %q references missing filter %q", errs.ErrConfig, r.Name, fr.Name))
				continue
			}
			if !intersects(fr.Filter.Triggers(), r.Triggers) {
				out = append(out, fmt.Errorf("%w: filter %q in rule %q shares no trigger with the rule", errs.ErrConfig, fr.Name, r.Name))
			}
		}

		for _, ar := range r.Actions {
			if ar.Action == nil {
				out = append(out, fmt.Errorf("%w: rule %q references missing action %q", errs.ErrConfig, r.Name, ar.Name))
			}
		}
	}

	return out
}

func intersects(a, b []event.Kind) bool {
	set := make(map[event.Kind]bool, len(a))
	for _, k := range a {
		set[k] = true
	}
	for _, k := range b {
		if set[k] {
			return true
		}
	}
	return false
}
