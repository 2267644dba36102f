package util

import "testing"

func TestHashKey(t *testing.T) {
	id := "0b6f5d0e-4c1e-4f5e-9a77-3f1d2b1c0a9e"
	got := HashKey(id)
	if got != HashKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
	if short := ShortHash(id, 12); short != got[:12] {
		t.Fatalf("ShortHash mismatch: %s", short)
	}
}
