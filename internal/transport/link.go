// Package transport establishes and carries the tunnel channel: one framed,
// reliable byte stream between exactly two endpoints.
//
// The channel is plain TCP by default. In WebSocket mode the same byte
// stream rides inside binary WebSocket messages, which lets the tunnel
// cross HTTP-only ingress; framing and all failure semantics are identical
// in either mode.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/1ureka/tunlink/internal/protocol"
)

var (
	// ErrChannelBroken reports a channel that stopped at a frame boundary
	// or failed outright: the peer closed it, the network dropped it, or a
	// write error occurred.
	ErrChannelBroken = errors.New("channel broken")

	// ErrProtocolViolation reports a stream that ended mid-frame, with
	// bytes promised by a length prefix still outstanding.
	ErrProtocolViolation = errors.New("channel protocol violation")
)

// Link is one established channel. Send and Receive may run concurrently
// with each other; concurrent Sends are serialized internally so frames
// never interleave on the wire.
type Link struct {
	conn net.Conn

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewLink wraps an established stream connection.
func NewLink(conn net.Conn) *Link {
	return &Link{conn: conn}
}

// Send writes one payload as a single frame. A payload is delivered whole
// or not at all: any write error leaves the channel unusable and is
// reported as ErrChannelBroken.
func (l *Link) Send(p []byte) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()

	if err := protocol.WriteFrame(l.conn, p); err != nil {
		if errors.Is(err, protocol.ErrPayloadTooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrChannelBroken, err)
	}
	return nil
}

// Receive blocks for the next complete frame and returns its payload.
// A peer that closes cleanly between frames yields ErrChannelBroken; a
// stream truncated mid-frame yields ErrProtocolViolation. A partial frame
// is never surfaced.
func (l *Link) Receive() ([]byte, error) {
	p, err := protocol.ReadFrame(l.conn)
	if err != nil {
		return nil, classifyReadError(err)
	}
	return p, nil
}

func classifyReadError(err error) error {
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: truncated frame", ErrProtocolViolation)
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: peer closed the connection", ErrChannelBroken)
	default:
		return fmt.Errorf("%w: %v", ErrChannelBroken, err)
	}
}

// Close shuts the channel down. Safe to call more than once and from any
// goroutine; a blocked Send or Receive unblocks with an error.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}

// RemoteAddr returns the peer's address.
func (l *Link) RemoteAddr() net.Addr {
	return l.conn.RemoteAddr()
}
