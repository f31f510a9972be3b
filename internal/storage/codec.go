package storage

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultCompressThreshold is the JSON payload size above which values are
// compressed before they reach the adapter.
const DefaultCompressThreshold = 1024

// record is the on-disk envelope around a JSON payload.
type record struct {
	Compressed bool   `msgpack:"c"`
	Data       []byte `msgpack:"d"`
}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil)
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// encodeRecord wraps a JSON payload, compressing it when it exceeds threshold.
// A threshold of zero or less disables compression.
func encodeRecord(payload []byte, threshold int) ([]byte, error) {
	rec := record{Data: payload}
	if threshold > 0 && len(payload) > threshold {
		enc, _, err := codecs()
		if err != nil {
			return nil, fmt.Errorf("init compressor: %w", err)
		}
		compressed := enc.EncodeAll(payload, make([]byte, 0, len(payload)/2))
		if len(compressed) < len(payload) {
			rec = record{Compressed: true, Data: compressed}
		}
	}
	out, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return out, nil
}

// decodeRecord returns the JSON payload stored in raw.
func decodeRecord(raw []byte) ([]byte, error) {
	var rec record
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if !rec.Compressed {
		return rec.Data, nil
	}
	_, dec, err := codecs()
	if err != nil {
		return nil, fmt.Errorf("init decompressor: %w", err)
	}
	payload, err := dec.DecodeAll(rec.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress record: %w", err)
	}
	return payload, nil
}
