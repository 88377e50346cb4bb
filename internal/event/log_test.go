package event

import "testing"

// TestLogPrependOrder verifies entries come back most recent first.
func TestLogPrependOrder(t *testing.T) {
	log := NewLog()
	log.Prepend(Outbound, New("first"))
	log.Prepend(Inbound, New("second"))
	log.Prepend(Outbound, New("third"))

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("Len mismatch: got %d, want 3", len(entries))
	}

	wantTypes := []string{"third", "second", "first"}
	for i, want := range wantTypes {
		if got := entries[i].Event.Type(); got != want {
			t.Errorf("entry %d: got %q, want %q", i, got, want)
		}
	}
	if entries[0].Dir != Outbound || entries[1].Dir != Inbound {
		t.Error("direction tags mismatch")
	}
}

// TestLogReset verifies Reset empties the log.
func TestLogReset(t *testing.T) {
	log := NewLog()
	log.Prepend(Inbound, New("a"))
	log.Prepend(Inbound, New("b"))

	log.Reset()

	if log.Len() != 0 {
		t.Fatalf("expected empty log after Reset, got %d entries", log.Len())
	}

	// The log is usable after a reset.
	log.Prepend(Outbound, New("c"))
	if log.Len() != 1 {
		t.Fatalf("expected 1 entry after re-append, got %d", log.Len())
	}
}

// TestLogEntriesSnapshot verifies Entries returns a copy unaffected by later
// mutation.
func TestLogEntriesSnapshot(t *testing.T) {
	log := NewLog()
	log.Prepend(Outbound, New("a"))

	snapshot := log.Entries()
	log.Prepend(Outbound, New("b"))

	if len(snapshot) != 1 {
		t.Fatalf("snapshot mutated: got %d entries, want 1", len(snapshot))
	}
	if snapshot[0].Event.Type() != "a" {
		t.Errorf("snapshot content changed: got %q", snapshot[0].Event.Type())
	}
}

// TestLogOnUpdate verifies the update hook fires on Prepend and Reset.
func TestLogOnUpdate(t *testing.T) {
	log := NewLog()

	var calls int
	log.OnUpdate(func() { calls++ })

	log.Prepend(Inbound, New("a"))
	log.Reset()
	log.Prepend(Outbound, New("b"))

	if calls != 3 {
		t.Errorf("update hook calls: got %d, want 3", calls)
	}
}
