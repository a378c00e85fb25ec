// Package filter implements the built-in Filter plugins of spec.md
// §4.6, grounded one-for-one on
// original_source/daemon/plugins/filters/command_filters.py,
// file_upload_filters.py, and connection_filters.py.
package filter

import (
	"regexp"
	"strings"

	"github.com/sshlog/agent/event"
)

var commandTriggers = []event.Kind{event.KindCommandStart, event.KindCommandFinish}

// CommandName matches event.Filename against one literal name or a
// list of names (command_name_filter).
type CommandName struct {
	Match []string
}

func (f CommandName) Triggers() []event.Kind { return commandTriggers }

func (f CommandName) Filter(evt event.Event) bool {
	return contains(f.Match, evt.Filename)
}

// CommandNameRegex matches event.Filename against a regular
// expression (command_name_regex_filter).
type CommandNameRegex struct {
	Pattern *regexp.Regexp
}

func (f CommandNameRegex) Triggers() []event.Kind { return commandTriggers }

func (f CommandNameRegex) Filter(evt event.Event) bool {
	return f.Pattern.MatchString(evt.Filename)
}

// CommandExitCode matches event.ExitCode against either an explicit
// set of codes or a comparison expression ("!= 0", ">= 2", a bare
// number meaning equality) — command_exit_code_filter.
type CommandExitCode struct {
	Codes      []int
	Comparison string
}

func (f CommandExitCode) Triggers() []event.Kind { return []event.Kind{event.KindCommandFinish} }

func (f CommandExitCode) Filter(evt event.Event) bool {
	if len(f.Codes) > 0 {
		for _, c := range f.Codes {
			if c == evt.ExitCode {
				return true
			}
		}
		return false
	}
	return compareNumber(f.Comparison, float64(evt.ExitCode))
}

// CommandOutputContains matches a literal substring of event.Stdout
// (command_output_contains_filter).
type CommandOutputContains struct {
	Substring string
}

func (f CommandOutputContains) Triggers() []event.Kind { return []event.Kind{event.KindCommandFinish} }

func (f CommandOutputContains) Filter(evt event.Event) bool {
	return strings.Contains(evt.Stdout, f.Substring)
}

// CommandOutputContainsRegex matches event.Stdout against a regular
// expression (command_output_contains_regex_filter).
type CommandOutputContainsRegex struct {
	Pattern *regexp.Regexp
}

func (f CommandOutputContainsRegex) Triggers() []event.Kind { return []event.Kind{event.KindCommandFinish} }

func (f CommandOutputContainsRegex) Filter(evt event.Event) bool {
	return f.Pattern.MatchString(evt.Stdout)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
