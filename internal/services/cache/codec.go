package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Payload header bytes.
const (
	formatJSON byte = 'j'
	formatZstd byte = 'z'
)

var errEmptyPayload = errors.New("empty cache payload")

// codec serializes cache values as JSON and compresses them with zstd once
// they reach threshold bytes. A threshold <= 0 disables compression.
type codec struct {
	threshold int
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

func newCodec(threshold int) (*codec, error) {
	c := &codec{threshold: threshold}

	var err error
	c.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return c, nil
}

// encode marshals value and prefixes the result with its format header.
func (c *codec) encode(value any) ([]byte, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if c.threshold > 0 && c.encoder != nil && len(body) >= c.threshold {
		compressed := c.encoder.EncodeAll(body, make([]byte, 1, len(body)/2+1))
		// Only keep the compressed form if it is actually smaller
		if len(compressed)-1 < len(body) {
			compressed[0] = formatZstd
			return compressed, nil
		}
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, formatJSON)
	return append(out, body...), nil
}

// decode strips the header and returns the JSON body.
func (c *codec) decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errEmptyPayload
	}

	switch data[0] {
	case formatJSON:
		return data[1:], nil
	case formatZstd:
		if c.decoder == nil {
			return nil, errors.New("zstd decoder not available")
		}
		body, err := c.decoder.DecodeAll(data[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress cache value: %w", err)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("unknown cache payload format %q", data[0])
	}
}
