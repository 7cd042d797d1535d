// Package transform provides the reversible per-packet byte transform
// applied on both sides of the tunnel channel.
package transform

import (
	"encoding/hex"
	"fmt"
)

// Transform obfuscates packet bytes in place. Apply is its own inverse and
// never changes the length, so the same implementation runs on both ends
// and in both directions.
//
// No implementation in this package provides confidentiality or integrity
// against a real adversary; this is the seam where a real cipher would go.
type Transform interface {
	Apply(p []byte)
	String() string
}

// FromKey selects a Transform from a hex-encoded key: 2 hex digits select
// the single-byte XOR, 64 hex digits select the ChaCha20 pad. Any other
// length is a configuration error.
func FromKey(hexKey string) (Transform, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid key %q: %w", hexKey, err)
	}

	switch len(key) {
	case 1:
		return XOR{Key: key[0]}, nil
	case 32:
		return NewChaCha20(key)
	default:
		return nil, fmt.Errorf("key must be 1 byte (xor) or 32 bytes (chacha20), got %d", len(key))
	}
}
