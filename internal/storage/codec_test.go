package storage

import (
	"bytes"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	large := bytes.Repeat([]byte(`{"title":"repeat me"},`), 200)

	tests := []struct {
		name           string
		payload        []byte
		threshold      int
		wantCompressed bool
	}{
		{"small stays plain", []byte(`{"a":1}`), 1024, false},
		{"large is compressed", large, 1024, true},
		{"compression disabled", large, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := encodeRecord(tt.payload, tt.threshold)
			if err != nil {
				t.Fatalf("encodeRecord() error: %v", err)
			}
			if tt.wantCompressed && len(raw) >= len(tt.payload) {
				t.Errorf("encoded size %d not smaller than payload %d", len(raw), len(tt.payload))
			}
			got, err := decodeRecord(raw)
			if err != nil {
				t.Fatalf("decodeRecord() error: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("decodeRecord() did not return the original payload")
			}
		})
	}
}

func TestDecodeRecordRejectsGarbage(t *testing.T) {
	if _, err := decodeRecord([]byte{0xc1, 0x00}); err == nil {
		t.Error("decodeRecord() of garbage succeeded")
	}
}
