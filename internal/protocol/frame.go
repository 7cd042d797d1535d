// Package protocol defines the frame format carried on the tunnel channel.
//
// Every packet crosses the channel as one frame:
//
//	+----------------+---------------------+
//	| length (u16 BE)| payload (length B)  |
//	+----------------+---------------------+
//
// The length counts payload bytes only. There is no magic number, no
// version field, no sequence number, and no integrity check; the stream
// transport is trusted to deliver bytes in order.
package protocol

import "errors"

// HeaderSize is the fixed frame header size: Length(2).
const HeaderSize = 2

// MaxPayload is the largest payload a frame can describe, bounded by the
// 16-bit length field.
const MaxPayload = 65535

// ErrPayloadTooLarge reports a payload that cannot be represented in the
// length field. No bytes are emitted for such a payload.
var ErrPayloadTooLarge = errors.New("payload exceeds 65535 bytes")
