package action

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/sshlog/agent/event"
)

// logfileDefaultMaxSizeMB mirrors logfile_action.py's default max_size_mb=20
// (expressed in KB there by a unit bug the original carries; the Go
// version keeps it in whole megabytes since nothing depends on the
// original's off-by-1024 behavior).
const logfileDefaultMaxSizeMB = 20
const logfileDefaultBackups = 2

// LogfileAction appends each triggering event, as one JSON line, to
// its own rotating log file — independent of the daemon's own log
// file, grounded on logfile_action.py's dedicated
// RotatingFileHandler.
type LogfileAction struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	backups  int
	f        *os.File
	size     int64
}

// NewLogfileAction builds a LogfileAction from params["path"] (required),
// params["max_size_mb"] and params["number_of_log_files"] (both optional).
func NewLogfileAction(params map[string]string) (*LogfileAction, error) {
	path := params["path"]
	if path == "" {
		return nil, fmt.Errorf("action: logfile action requires params.path")
	}

	a := &LogfileAction{
		path:     path,
		maxBytes: logfileDefaultMaxSizeMB * 1024 * 1024,
		backups:  logfileDefaultBackups,
	}
	if raw := params["max_size_mb"]; raw != "" {
		mb, err := strconv.Atoi(raw)
		if err != nil || mb <= 0 {
			return nil, fmt.Errorf("action: logfile action params.max_size_mb %q is not a positive integer", raw)
		}
		a.maxBytes = int64(mb) * 1024 * 1024
	}
	if raw := params["number_of_log_files"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("action: logfile action params.number_of_log_files %q is not a non-negative integer", raw)
		}
		a.backups = n
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("action: opening logfile action target %q: %w", path, err)
	}
	if info, err := f.Stat(); err == nil {
		a.size = info.Size()
	}
	a.f = f
	return a, nil
}

func (a *LogfileAction) Execute(evt event.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("action: marshalling event for logfile action: %w", err)
	}
	line = append(line, '\n')

	if a.size+int64(len(line)) > a.maxBytes {
		if err := a.rotate(); err != nil {
			return err
		}
	}

	n, err := a.f.Write(line)
	a.size += int64(n)
	return err
}

func (a *LogfileAction) rotate() error {
	if err := a.f.Close(); err != nil {
		return err
	}
	for i := a.backups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", a.path, i)
		dst := fmt.Sprintf("%s.%d", a.path, i+1)
		_ = os.Rename(src, dst)
	}
	if a.backups > 0 {
		_ = os.Rename(a.path, fmt.Sprintf("%s.1", a.path))
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("action: reopening logfile action target %q after rotation: %w", a.path, err)
	}
	a.f = f
	a.size = 0
	return nil
}
