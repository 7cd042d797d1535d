package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteFrame serializes one payload as a frame onto w. Short writes are
// retried until the frame is fully on the wire; the first write error is
// returned as-is. Oversized payloads fail before any byte is written.
//
// WriteFrame performs no locking. Callers that share w across goroutines
// must serialize frames themselves, or interleaved headers will corrupt
// the stream.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(payload)))

	if err := writeAll(w, hdr[:]); err != nil {
		return err
	}
	return writeAll(w, payload)
}

// ReadFrame reads exactly one frame from r and returns its payload.
//
// A stream that ends cleanly between frames returns io.EOF. A stream that
// ends after a partial header, or before delivering the payload its header
// promised, returns io.ErrUnexpectedEOF — the frame was truncated and no
// partial payload is ever surfaced. Zero-length frames return an empty,
// non-nil payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	length := int(binary.BigEndian.Uint16(hdr[:]))
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			// The header promised bytes the stream never delivered.
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// writeAll writes b fully, looping on short writes.
func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
