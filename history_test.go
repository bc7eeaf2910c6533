package identity

import (
	"testing"
	"time"
)

func TestRecordCredential_FIFOEviction(t *testing.T) {
	now := time.Now()

	var history []CredentialEntry
	for i := 0; i < 7; i++ {
		history = recordCredential(history, string(rune('a'+i)), now, 5)
	}

	if len(history) != 5 {
		t.Fatalf("expected depth 5, got %d", len(history))
	}
	// Oldest two ("a", "b") evicted, insertion order preserved.
	want := []string{"c", "d", "e", "f", "g"}
	for i, entry := range history {
		if entry.Hash != want[i] {
			t.Fatalf("slot %d: expected %q, got %q", i, want[i], entry.Hash)
		}
	}
}

func TestRecordCredential_IgnoresEmptyHash(t *testing.T) {
	history := recordCredential(nil, "", time.Now(), 5)
	if len(history) != 0 {
		t.Fatalf("expected empty hash ignored, got %d entries", len(history))
	}
}

func TestRecordCredential_ZeroDepthKeepsNothing(t *testing.T) {
	history := recordCredential(nil, "h", time.Now(), 0)
	if len(history) != 0 {
		t.Fatalf("expected no entries at depth 0, got %d", len(history))
	}
}
