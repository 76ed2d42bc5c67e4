package store

import "testing"

func TestEncodeDecodeIndexSnapshotRoundTrips(t *testing.T) {
	entries := []IndexEntry{
		{HashID: 1, Point: Point{0.1, 0.2, 0.3, 0.4}},
		{HashID: 2, Point: Point{0.5, 0.6, 0.7, 0.8}},
	}

	blob, err := encodeIndexSnapshot(entries)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	out, err := decodeIndexSnapshot(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(out))
	}
	for i := range entries {
		if out[i] != entries[i] {
			t.Fatalf("entry %d mismatch: got %+v, want %+v", i, out[i], entries[i])
		}
	}
}

func TestDecodeIndexSnapshotEmpty(t *testing.T) {
	out, err := decodeIndexSnapshot(nil)
	if err != nil {
		t.Fatalf("unexpected error decoding empty snapshot: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil entries for empty snapshot, got %+v", out)
	}
}
