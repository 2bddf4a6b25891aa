package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// KeyPrefix namespaces every fingerprint written by this service.
const KeyPrefix = "mm"

// Sentinel errors for key validation.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Fingerprint derives a deterministic cache key for an operation.
// Format: mm:<op>:<hash>, where hash is the first 16 hex characters of
// SHA-256 over the canonical JSON of input. Map keys are sorted, so two
// inputs that differ only in map ordering share a key.
func Fingerprint(op string, input any) (string, error) {
	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}

	hash := sha256.Sum256(canonical)
	return fmt.Sprintf("%s:%s:%s", KeyPrefix, op, hex.EncodeToString(hash[:8])), nil
}

// HashBytes returns the hex SHA-256 of binary content, used to fold uploads
// into a fingerprint without embedding the bytes themselves.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// canonicalize produces a deterministic JSON representation of the input.
// Structs are round-tripped through a generic map so nested maps are sorted too.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	case string, bool, float64, int, int64:
		return json.Marshal(val)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	switch g := generic.(type) {
	case map[string]any:
		return canonicalizeMap(g)
	case []any:
		return canonicalizeSlice(g)
	default:
		return raw, nil
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}
