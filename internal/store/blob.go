package store

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/ulikunitz/xz"
)

// encodeIndexSnapshot gob-encodes the index's entries and compresses them
// with xz, so a large reference library's spatial index reopens from one
// small blob read instead of replaying every HashRow.
func encodeIndexSnapshot(entries []IndexEntry) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(entries); err != nil {
		return nil, fmt.Errorf("encoding index snapshot: %w", err)
	}

	var compressed bytes.Buffer
	w, err := xz.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("creating xz writer: %w", err)
	}
	if _, err := w.Write(raw.Bytes()); err != nil {
		w.Close()
		return nil, fmt.Errorf("compressing index snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing xz writer: %w", err)
	}
	return compressed.Bytes(), nil
}

// decodeIndexSnapshot reverses encodeIndexSnapshot.
func decodeIndexSnapshot(data []byte) ([]IndexEntry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating xz reader: %w", err)
	}

	var entries []IndexEntry
	if err := gob.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding index snapshot: %w", err)
	}
	return entries, nil
}
