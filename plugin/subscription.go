package plugin

import (
	"fmt"

	"github.com/sshlog/agent/bus"
	"github.com/sshlog/agent/event"
)

// eventSubscription is the runtime counterpart of one Rule: it
// subscribes a single callback to the bus for the rule's triggers and,
// on delivery, runs the filter/action pipeline described in
// original_source/daemon/plugins/common/plugin.py's
// EventPlugin._event_callback.
type eventSubscription struct {
	rule     Rule
	pool     *workerPool
	log      Logger
	onAction func(actionName string, err error)
}

func newEventSubscription(rule Rule, pool *workerPool, log Logger, onAction func(actionName string, err error)) *eventSubscription {
	return &eventSubscription{rule: rule, pool: pool, log: log, onAction: onAction}
}

func (s *eventSubscription) attach(b *bus.Bus) {
	b.Subscribe(s.onEvent, s.rule.Triggers...)
}

func (s *eventSubscription) detach(b *bus.Bus) {
	b.Unsubscribe(s.onEvent, s.rule.Triggers...)
}

func (s *eventSubscription) onEvent(evt event.Event) {
	for _, fr := range s.rule.Filters {
		if !triggersContain(fr.Filter.Triggers(), evt.Kind) {
			continue
		}
		if !s.evalFilter(fr, evt) {
			if s.log != nil {
				s.log.Debug("plugin: event dropped by filter", map[string]interface{}{
					"rule": s.rule.Name, "filter": fr.Name,
				})
			}
			return
		}
	}

	for _, ar := range s.rule.Actions {
		ar := ar
		s.pool.submit(func() {
			s.runAction(ar, evt)
		})
	}
}

// evalFilter runs fr.Filter.Filter, recovering from a panic the way
// the teacher's except-all block does: log and treat as a drop, not a
// pass (original_source's "except: ... return" leaves the event
// undelivered on an unexpected filter error).
func (s *eventSubscription) evalFilter(fr FilterRef, evt event.Event) (passed bool) {
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Error("plugin: filter panicked", map[string]interface{}{
					"rule": s.rule.Name, "filter": fr.Name, "recover": r,
				})
			}
			passed = false
		}
	}()
	return fr.Filter.Filter(evt)
}

func (s *eventSubscription) runAction(ar ActionRef, evt event.Event) {
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Error("plugin: action panicked", map[string]interface{}{
					"rule": s.rule.Name, "action": ar.Name, "recover": r,
				})
			}
			if s.onAction != nil {
				s.onAction(ar.Name, fmt.Errorf("panic: %v", r))
			}
		}
	}()

	err := ar.Action.Execute(evt)
	if err != nil && s.log != nil {
		s.log.Error("plugin: action failed", map[string]interface{}{
			"rule": s.rule.Name, "action": ar.Name, "error": err.Error(),
		})
	}
	if s.onAction != nil {
		s.onAction(ar.Name, err)
	}
}

func triggersContain(triggers []event.Kind, k event.Kind) bool {
	for _, t := range triggers {
		if t == k {
			return true
		}
	}
	return false
}
