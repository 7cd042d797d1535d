// Package engine is the forwarding core of the tunnel: it moves packets
// between one TUN device and one channel until either side fails.
package engine

import (
	"context"
	"fmt"

	"github.com/1ureka/tunlink/internal/protocol"
	"github.com/1ureka/tunlink/internal/transform"
	"github.com/1ureka/tunlink/internal/transport"
	"github.com/1ureka/tunlink/internal/tun"
	"github.com/1ureka/tunlink/internal/util"
)

// readBufferSize fits the largest packet a frame can carry.
const readBufferSize = protocol.MaxPayload

// Engine owns the data path between one open device handle and one
// established channel. It is handed both collaborators ready to use and
// never opens, reopens, or replaces them.
type Engine struct {
	dev  tun.Device
	link *transport.Link
	tf   transform.Transform
}

// New assembles an engine. The device and link must be open; tf is applied
// to every payload in both directions.
func New(dev tun.Device, link *transport.Link, tf transform.Transform) *Engine {
	return &Engine{dev: dev, link: link, tf: tf}
}

// Run forwards packets in both directions until ctx is cancelled or the
// first fatal error on either side, and returns the reason for stopping
// (context.Canceled on operator shutdown). The channel is closed on the
// way out; the device handle stays open for its owner.
//
// All forwarding work happens on this one loop. The two reader goroutines
// only perform the blocking reads, handing packets over unbuffered
// channels, so at most one packet per direction is in flight and
// per-direction order is preserved end to end. There is no buffering and
// no back-pressure beyond that hand-off.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer e.link.Close()

	fromDev := make(chan []byte)
	fromLink := make(chan []byte)
	errCh := make(chan error, 2)

	go e.pumpDevice(ctx, fromDev, errCh)
	go e.pumpLink(ctx, fromLink, errCh)

	for {
		select {
		case pkt := <-fromDev:
			util.LogDebug("[%s → peer] %s", e.dev.Name(), describePacket(pkt))
			e.tf.Apply(pkt)
			if err := e.link.Send(pkt); err != nil {
				return fmt.Errorf("failed to forward to peer: %w", err)
			}
			util.Stats.AddOut(len(pkt) + protocol.HeaderSize)

		case pkt := <-fromLink:
			e.tf.Apply(pkt)
			util.LogDebug("[peer → %s] %s", e.dev.Name(), describePacket(pkt))
			if err := e.dev.WritePacket(pkt); err != nil {
				return fmt.Errorf("failed to inject into %s: %w", e.dev.Name(), err)
			}
			util.Stats.AddIn(len(pkt) + protocol.HeaderSize)

		case err := <-errCh:
			return err

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pumpDevice hands every packet the kernel delivers to the select loop.
// The payload is copied out because the read buffer is reused immediately.
func (e *Engine) pumpDevice(ctx context.Context, out chan<- []byte, errCh chan<- error) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := e.dev.ReadPacket(buf)
		if err != nil {
			select {
			case errCh <- fmt.Errorf("failed to read from %s: %w", e.dev.Name(), err):
			case <-ctx.Done():
			}
			return
		}

		pkt := make([]byte, n)
		copy(pkt, buf[:n])

		select {
		case out <- pkt:
		case <-ctx.Done():
			return
		}
	}
}

// pumpLink hands every frame from the peer to the select loop. Receive
// already classifies failures, so errors pass through unwrapped.
func (e *Engine) pumpLink(ctx context.Context, out chan<- []byte, errCh chan<- error) {
	for {
		pkt, err := e.link.Receive()
		if err != nil {
			select {
			case errCh <- err:
			case <-ctx.Done():
			}
			return
		}

		select {
		case out <- pkt:
		case <-ctx.Done():
			return
		}
	}
}
