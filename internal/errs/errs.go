// Package errs defines the error taxonomy of spec.md §7. Each
// sentinel identifies a class of failure; call sites wrap it with
// fmt.Errorf("%w: ...") to attach detail without losing the class for
// errors.Is checks.
package errs

import "errors"

var (
	// ErrProtocol marks a malformed envelope or unknown payload_type.
	// The router logs and drops the frame; it never produces a
	// response.
	ErrProtocol = errors.New("protocol error")

	// ErrConfig marks a plugin configuration validation failure.
	// Validation errors accumulate; a non-empty list refuses daemon
	// startup.
	ErrConfig = errors.New("config error")

	// ErrFatalStartup marks a failure that must abort daemon startup
	// with a non-zero exit code (missing root, lock held, permission
	// denied, cannot bind socket).
	ErrFatalStartup = errors.New("fatal startup error")

	// ErrSessionNotFound marks a Kill/SendKeys request against a
	// ptm_pid with no tracked session or process.
	ErrSessionNotFound = errors.New("session not found")
)
