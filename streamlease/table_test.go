package streamlease_test

import (
	"testing"
	"time"

	"github.com/sshlog/agent/streamlease"
)

func TestRefreshThenActive(t *testing.T) {
	tbl := streamlease.New()
	tbl.Refresh("abc")

	if !tbl.IsActive("abc") {
		t.Fatalf("expected lease to be active immediately after refresh")
	}
}

func TestUnknownID_NotActive(t *testing.T) {
	tbl := streamlease.New()
	if tbl.IsActive("never-seen") {
		t.Fatalf("expected unknown id to be inactive")
	}
}

func TestLapse_AfterMaxLease(t *testing.T) {
	tbl := streamlease.New()
	tbl.Refresh("abc")

	time.Sleep(streamlease.MaxLease + 150*time.Millisecond)

	if tbl.IsActive("abc") {
		t.Fatalf("expected lease to have lapsed")
	}
}

func TestDrop(t *testing.T) {
	tbl := streamlease.New()
	tbl.Refresh("abc")
	tbl.Drop("abc")

	if tbl.IsActive("abc") {
		t.Fatalf("expected dropped lease to be inactive")
	}
}

func TestSweeper_StartsAndStopsCleanly(t *testing.T) {
	tbl := streamlease.New()
	tbl.Refresh("abc")

	tbl.StartSweeper(20 * time.Millisecond)
	defer tbl.Stop()

	// The lease lapses (by the 1s MaxLease rule) long before the
	// sweeper's bookkeeping-only eviction kicks in; this test only
	// checks the sweeper goroutine starts and stops cleanly without
	// racing the table's own mutex.
	time.Sleep(60 * time.Millisecond)
}
