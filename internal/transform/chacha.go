package transform

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/chacha20"

	"github.com/1ureka/tunlink/internal/protocol"
)

// ChaCha20 XORs packets against a fixed pad: the ChaCha20 keystream for the
// given key, zero nonce, counter 0. The pad is reused for every packet so
// that Apply stays self-inverse, which also means this is obfuscation, not
// confidentiality.
type ChaCha20 struct {
	pad []byte
}

// NewChaCha20 derives the pad from a 32-byte key.
func NewChaCha20(key []byte) (*ChaCha20, error) {
	if len(key) != chacha20.KeySize {
		return nil, fmt.Errorf("chacha20 key must be %d bytes, got %d", chacha20.KeySize, len(key))
	}

	var nonce [chacha20.NonceSize]byte
	cipher, err := chacha20.NewUnauthenticatedCipher(key, nonce[:])
	if err != nil {
		return nil, fmt.Errorf("failed to init chacha20: %w", err)
	}

	pad := make([]byte, protocol.MaxPayload)
	cipher.XORKeyStream(pad, pad)
	return &ChaCha20{pad: pad}, nil
}

func (c *ChaCha20) Apply(p []byte) {
	subtle.XORBytes(p, p, c.pad[:len(p)])
}

func (c *ChaCha20) String() string {
	return "chacha20"
}
