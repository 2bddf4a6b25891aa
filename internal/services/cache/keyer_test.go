package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintFormat(t *testing.T) {
	key, err := Fingerprint("text", map[string]any{"prompt": "hello"})
	require.NoError(t, err)

	parts := strings.Split(key, ":")
	require.Len(t, parts, 3)
	assert.Equal(t, "mm", parts[0])
	assert.Equal(t, "text", parts[1])
	assert.Len(t, parts[2], 16)
	assert.NoError(t, ValidateKey(key))
}

func TestFingerprintDeterministic(t *testing.T) {
	a := map[string]any{"prompt": "hello", "temperature": 0.7, "nested": map[string]any{"x": 1, "y": 2}}
	b := map[string]any{"nested": map[string]any{"y": 2, "x": 1}, "temperature": 0.7, "prompt": "hello"}

	ka, err := Fingerprint("text", a)
	require.NoError(t, err)
	kb, err := Fingerprint("text", b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
}

func TestFingerprintDistinguishesInputs(t *testing.T) {
	k1, err := Fingerprint("text", map[string]any{"prompt": "hello"})
	require.NoError(t, err)
	k2, err := Fingerprint("text", map[string]any{"prompt": "hello!"})
	require.NoError(t, err)
	k3, err := Fingerprint("vision", map[string]any{"prompt": "hello"})
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestFingerprintStructInput(t *testing.T) {
	type input struct {
		Prompt string            `json:"prompt"`
		Extra  map[string]string `json:"extra"`
	}

	k1, err := Fingerprint("text", input{Prompt: "p", Extra: map[string]string{"a": "1", "b": "2"}})
	require.NoError(t, err)
	k2, err := Fingerprint("text", map[string]any{"extra": map[string]any{"b": "2", "a": "1"}, "prompt": "p"})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("mm:text:abc"))
	assert.ErrorIs(t, ValidateKey(""), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey(" \t"), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey("a\rb"), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey(strings.Repeat("x", MaxKeyLength+1)), ErrKeyTooLong)
}

func TestHashBytes(t *testing.T) {
	assert.Equal(t, HashBytes([]byte("abc")), HashBytes([]byte("abc")))
	assert.NotEqual(t, HashBytes([]byte("abc")), HashBytes([]byte("abd")))
	assert.Len(t, HashBytes(nil), 64)
}
