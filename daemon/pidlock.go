// Package daemon wires components C1-C8 into the running sshlogd
// process (spec.md §4.8/§9, component C9): event bus, session
// tracker, active-streams table, IPC router and handlers, and plugin
// runtime, plus the daemon-level concerns (PID lockfile, kernel
// preflight, graceful shutdown ordering) SPEC_FULL.md adds. Signal
// handling lives in cmd/sshlogd, which calls Shutdown.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sshlog/agent/internal/errs"
)

// pidLockRetryInterval is how often Acquire retries an already-held
// lock within the configured timeout.
const pidLockRetryInterval = 100 * time.Millisecond

// PIDLockFile is a flock(2)-based PID file, grounded on
// original_source/daemon/comms/pidlockfile.py's PIDLockFile: an
// exclusive lock on a file that also carries this process's pid, taken
// with non-blocking flock attempts that Acquire retries until its
// timeout, so a second daemon instance gives up instead of racing the
// first for the socket.
type PIDLockFile struct {
	path string
	f    *os.File
}

// NewPIDLockFile returns a lock for path, unacquired.
func NewPIDLockFile(path string) *PIDLockFile {
	return &PIDLockFile{path: path}
}

// Acquire locks the file, writing this process's pid into it, and
// returns errs.ErrFatalStartup if another process still holds the
// lock once timeout elapses. A zero timeout tries exactly once, non-
// blockingly, matching the original pidlockfile's default.
//
// This reproduces daemon/comms/pidlockfile.py's acquire-with-timeout:
// the original retries LOCK_EX|LOCK_NB in a sleep loop rather than
// blocking on flock forever, so a stale lock from a killed daemon
// clears (via the kernel releasing it on process exit) within one
// timeout window instead of wedging the new process indefinitely.
func (p *PIDLockFile) Acquire(timeout time.Duration) error {
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening pid file %s: %v", errs.ErrFatalStartup, p.path, err)
	}

	deadline := time.Now().Add(timeout)
	var existing int
	for {
		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err == nil {
			break
		}
		existing = readPID(f)
		if time.Now().After(deadline) {
			_ = f.Close()
			if existing > 0 {
				return fmt.Errorf("%w: %s is already locked by pid %d", errs.ErrFatalStartup, p.path, existing)
			}
			return fmt.Errorf("%w: %s is already locked", errs.ErrFatalStartup, p.path)
		}
		time.Sleep(pidLockRetryInterval)
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: truncating pid file: %v", errs.ErrFatalStartup, err)
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid()) + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: writing pid file: %v", errs.ErrFatalStartup, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: flushing pid file: %v", errs.ErrFatalStartup, err)
	}

	p.f = f
	return nil
}

// Release closes (and implicitly unlocks) the pid file.
func (p *PIDLockFile) Release() error {
	if p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f = nil
	return err
}

func readPID(f *os.File) int {
	buf := make([]byte, 32)
	n, _ := f.ReadAt(buf, 0)
	pid, _ := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	return pid
}
