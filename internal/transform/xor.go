package transform

import "fmt"

// XOR flips every payload byte with a single repeating key byte. This is
// the historical default (key 0x42).
type XOR struct {
	Key byte
}

func (x XOR) Apply(p []byte) {
	for i := range p {
		p[i] ^= x.Key
	}
}

func (x XOR) String() string {
	return fmt.Sprintf("xor(0x%02x)", x.Key)
}
