package profile

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"retriever/internal/selection"
)

// Encoding names how a payload is stored.
type Encoding string

const (
	// EncodingJSON is plain JSON
	EncodingJSON Encoding = "json"
	// EncodingJSONZstd is JSON compressed with zstd
	EncodingJSONZstd Encoding = "json+zstd"
)

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

// zstdCodec lazily builds a shared encoder/decoder pair; both are safe for
// concurrent EncodeAll/DecodeAll calls.
func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return encoder, decoder, codecErr
}

// Encode serializes an attribute map.
func Encode(attrs selection.AttributeMap, compress bool) ([]byte, Encoding, error) {
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal attributes: %w", err)
	}
	if !compress {
		return data, EncodingJSON, nil
	}

	enc, _, err := zstdCodec()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), EncodingJSONZstd, nil
}

// Decode reverses Encode. The result is normalized to []string and
// map[string]string values.
func Decode(data []byte, encoding Encoding) (selection.AttributeMap, error) {
	switch encoding {
	case EncodingJSON:
	case EncodingJSONZstd:
		_, dec, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress attributes: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", encoding)
	}

	var attrs selection.AttributeMap
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	return selection.Normalize(attrs), nil
}
