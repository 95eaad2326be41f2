package main

import (
	"path/filepath"
	"testing"
)

func TestRunTracker(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state", ".earnscan-state")
	tracker := NewRunTracker(stateFile)

	if got := tracker.LastRunDate(); got != "" {
		t.Errorf("expected empty last run before any write, got %q", got)
	}
	if tracker.AlreadyRan("2025-06-02") {
		t.Error("nothing has run yet")
	}

	if err := tracker.SetLastRunDate("2025-06-02"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !tracker.AlreadyRan("2025-06-02") {
		t.Error("expected the recorded date to read back")
	}
	if tracker.AlreadyRan("2025-06-03") {
		t.Error("a later date has not run")
	}

	// A second write replaces, not appends.
	if err := tracker.SetLastRunDate("2025-06-03"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tracker.LastRunDate(); got != "2025-06-03" {
		t.Errorf("expected 2025-06-03, got %q", got)
	}
}
