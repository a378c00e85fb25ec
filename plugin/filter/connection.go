package filter

import (
	"regexp"
	"time"

	"github.com/sshlog/agent/event"
)

var sessionTriggers = []event.Kind{
	event.KindConnectionEstablished,
	event.KindConnectionClose,
	event.KindCommandStart,
	event.KindCommandFinish,
	event.KindTerminalUpdate,
	event.KindFileUpload,
}

// maxExistingLoginAge is the suppression window
// ignore_existing_logins_filter uses to tell a genuinely new
// connection from the connection_established replay the daemon emits
// for every already-live session on restart (SPEC_FULL.md's supplement
// to spec.md §4.6, grounded on
// original_source/daemon/plugins/filters/connection_filters.py's
// MAX_SECONDS_AGO = 10.0).
const maxExistingLoginAge = 10 * time.Second

// IgnoreExistingLogins drops connection_new/connection_established
// events whose start_time is older than maxExistingLoginAge, so a
// daemon restart's replay of already-live sessions doesn't look like a
// fresh login.
type IgnoreExistingLogins struct {
	Enabled bool
	Now     func() time.Time // nil uses time.Now
}

func (f IgnoreExistingLogins) Triggers() []event.Kind {
	return []event.Kind{event.KindConnectionNew, event.KindConnectionEstablished}
}

func (f IgnoreExistingLogins) Filter(evt event.Event) bool {
	if !f.Enabled {
		return true
	}
	now := f.now()
	age := now.Sub(time.UnixMilli(evt.StartTime))
	return age <= maxExistingLoginAge
}

func (f IgnoreExistingLogins) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// RequireTTY drops events whose tty_id is negative, i.e. sessions
// without an allocated pty (require_tty_filter).
type RequireTTY struct {
	Enabled bool
}

func (f RequireTTY) Triggers() []event.Kind { return sessionTriggers }

func (f RequireTTY) Filter(evt event.Event) bool {
	if !f.Enabled {
		return true
	}
	return evt.TTYID >= 0
}

// Username matches event.Username against a literal name, a list of
// names, or "*"/empty meaning "any user" (username_filter).
type Username struct {
	Match []string // empty, or containing "*", matches every user
}

func (f Username) Triggers() []event.Kind { return sessionTriggers }

func (f Username) Filter(evt event.Event) bool {
	if len(f.Match) == 0 {
		return true
	}
	for _, m := range f.Match {
		if m == "*" || m == "" {
			return true
		}
	}
	return contains(f.Match, evt.Username)
}

// UsernameRegex matches event.Username against a regular expression
// (username_regex_filter).
type UsernameRegex struct {
	Pattern *regexp.Regexp
}

func (f UsernameRegex) Triggers() []event.Kind { return sessionTriggers }

func (f UsernameRegex) Filter(evt event.Event) bool {
	return f.Pattern.MatchString(evt.Username)
}
