package daemon

import (
	"path/filepath"
	"testing"
	"time"
)

func TestPIDLockFile_AcquireSucceedsWhenUnlocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sshlogd.pid")
	l := NewPIDLockFile(path)
	if err := l.Acquire(0); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()
}

func TestPIDLockFile_AcquireFailsAfterTimeoutWhenAlreadyLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sshlogd.pid")

	first := NewPIDLockFile(path)
	if err := first.Acquire(0); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	second := NewPIDLockFile(path)
	start := time.Now()
	err := second.Acquire(150 * time.Millisecond)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected second Acquire to fail while the first holds the lock")
	}
	if elapsed < 150*time.Millisecond {
		t.Fatalf("Acquire returned after %v, want it to honor the timeout", elapsed)
	}
}

func TestPIDLockFile_AcquireSucceedsAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sshlogd.pid")

	first := NewPIDLockFile(path)
	if err := first.Acquire(0); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	done := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		first.Release()
		close(done)
	}()

	second := NewPIDLockFile(path)
	if err := second.Acquire(2 * time.Second); err != nil {
		t.Fatalf("second Acquire after release: %v", err)
	}
	defer second.Release()

	<-done
}
