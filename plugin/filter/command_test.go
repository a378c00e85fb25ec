package filter_test

import (
	"regexp"
	"testing"

	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/plugin/filter"
)

func TestCommandName_MatchesList(t *testing.T) {
	f := filter.CommandName{Match: []string{"ls", "cat"}}
	if !f.Filter(event.Event{Filename: "cat"}) {
		t.Fatalf("expected cat to match")
	}
	if f.Filter(event.Event{Filename: "rm"}) {
		t.Fatalf("expected rm not to match")
	}
}

func TestCommandNameRegex(t *testing.T) {
	f := filter.CommandNameRegex{Pattern: regexp.MustCompile(`^/usr/bin/.*sh$`)}
	if !f.Filter(event.Event{Filename: "/usr/bin/bash"}) {
		t.Fatalf("expected match")
	}
}

func TestCommandExitCode_ComparisonExpression(t *testing.T) {
	f := filter.CommandExitCode{Comparison: "!= 0"}
	if f.Filter(event.Event{ExitCode: 0}) {
		t.Fatalf("expected exit 0 to fail != 0")
	}
	if !f.Filter(event.Event{ExitCode: 1}) {
		t.Fatalf("expected exit 1 to pass != 0")
	}
}

func TestCommandExitCode_BareNumberIsEquality(t *testing.T) {
	f := filter.CommandExitCode{Comparison: "2"}
	if !f.Filter(event.Event{ExitCode: 2}) {
		t.Fatalf("expected bare '2' to mean equality")
	}
	if f.Filter(event.Event{ExitCode: 3}) {
		t.Fatalf("expected exit 3 not to match")
	}
}

func TestCommandExitCode_List(t *testing.T) {
	f := filter.CommandExitCode{Codes: []int{1, 2, 3}}
	if !f.Filter(event.Event{ExitCode: 2}) {
		t.Fatalf("expected 2 to be in the list")
	}
	if f.Filter(event.Event{ExitCode: 9}) {
		t.Fatalf("expected 9 not to be in the list")
	}
}

func TestCommandOutputContains(t *testing.T) {
	f := filter.CommandOutputContains{Substring: "error"}
	if !f.Filter(event.Event{Stdout: "an error occurred"}) {
		t.Fatalf("expected substring match")
	}
	if f.Filter(event.Event{Stdout: "all good"}) {
		t.Fatalf("expected no match")
	}
}
