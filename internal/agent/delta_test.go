package agent

import "testing"

func TestDeltaTrackerEmitsSuffixOnGrowth(t *testing.T) {
	var tr DeltaTracker

	delta, ok := tr.Next("Hello")
	if !ok || delta != "Hello" {
		t.Fatalf("first snapshot: got (%q, %v), want (\"Hello\", true)", delta, ok)
	}

	delta, ok = tr.Next("Hello, world")
	if !ok || delta != ", world" {
		t.Fatalf("grown snapshot: got (%q, %v), want (\", world\", true)", delta, ok)
	}
}

func TestDeltaTrackerSuppressesEqualSnapshot(t *testing.T) {
	var tr DeltaTracker

	tr.Next("Hello")
	if delta, ok := tr.Next("Hello"); ok {
		t.Fatalf("equal snapshot must emit nothing, got %q", delta)
	}
}

func TestDeltaTrackerReemitsOnNonMonotonicSnapshot(t *testing.T) {
	var tr DeltaTracker

	tr.Next("Hello, world")
	delta, ok := tr.Next("Goodbye")
	if !ok || delta != "Goodbye" {
		t.Fatalf("non-prefix snapshot: got (%q, %v), want full re-emit", delta, ok)
	}
	if tr.Current() != "Goodbye" {
		t.Fatalf("tracker must adopt the new snapshot, got %q", tr.Current())
	}
}

func TestDeltaTrackerShorterSnapshotReemitsFull(t *testing.T) {
	var tr DeltaTracker

	tr.Next("Hello, world")
	delta, ok := tr.Next("Hello")
	if !ok || delta != "Hello" {
		t.Fatalf("shrunk snapshot: got (%q, %v), want (\"Hello\", true)", delta, ok)
	}
}

func TestDeltaTrackerCurrentTracksLastSnapshot(t *testing.T) {
	var tr DeltaTracker

	tr.Next("a")
	tr.Next("ab")
	tr.Next("abc")
	if tr.Current() != "abc" {
		t.Fatalf("expected full text \"abc\", got %q", tr.Current())
	}
}
