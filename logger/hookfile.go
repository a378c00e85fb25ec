package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// rotating file size/backup policy (spec.md §6): hand-rolled rather
// than pulled from a third-party rotator, since the teacher's own
// hookfile package hand-rolls its rotation too (logger/hookfile/system.go)
// rather than depending on one.
const (
	maxFileSize = 5 * 1024 * 1024 // 5 MiB
	maxBackups  = 5
)

type fileHook struct {
	mu   sync.Mutex
	path string
	f    *os.File
	size int64
}

func newFileHook(path string) (*fileHook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	h := &fileHook{path: path}
	if err := h.open(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *fileHook) open() error {
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	h.f = f
	h.size = info.Size()
	return nil
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := e.Bytes()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size+int64(len(line)) > maxFileSize {
		if err := h.rotate(); err != nil {
			return err
		}
	}

	n, err := h.f.Write(line)
	h.size += int64(n)
	return err
}

// rotate shifts path.N -> path.N+1 up to maxBackups, dropping the
// oldest, then reopens path empty.
func (h *fileHook) rotate() error {
	if err := h.f.Close(); err != nil {
		return err
	}

	oldest := fmt.Sprintf("%s.%d", h.path, maxBackups)
	_ = os.Remove(oldest)

	for i := maxBackups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", h.path, i)
		dst := fmt.Sprintf("%s.%d", h.path, i+1)
		if _, err := os.Stat(src); err == nil {
			_ = os.Rename(src, dst)
		}
	}
	_ = os.Rename(h.path, h.path+".1")

	return h.open()
}
