package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/1ureka/tunlink/internal/protocol"
	"github.com/1ureka/tunlink/internal/transform"
	"github.com/1ureka/tunlink/internal/transport"
	"github.com/1ureka/tunlink/internal/tun"
)

// memDevice is an in-memory tun.Device: the test plays the kernel, pushing
// packets into deliver and collecting injected packets from inject.
type memDevice struct {
	deliver chan []byte
	inject  chan []byte
	done    chan struct{}
	once    sync.Once
}

func newMemDevice() *memDevice {
	return &memDevice{
		deliver: make(chan []byte, 128),
		inject:  make(chan []byte, 128),
		done:    make(chan struct{}),
	}
}

func (d *memDevice) ReadPacket(buf []byte) (int, error) {
	select {
	case p := <-d.deliver:
		return copy(buf, p), nil
	case <-d.done:
		return 0, tun.ErrDeviceClosed
	}
}

func (d *memDevice) WritePacket(p []byte) error {
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case d.inject <- cp:
		return nil
	case <-d.done:
		return tun.ErrDeviceClosed
	}
}

func (d *memDevice) Name() string { return "tunmem" }

func (d *memDevice) Close() error {
	d.once.Do(func() { close(d.done) })
	return nil
}

// startEngine runs an engine in the background and returns the channel its
// Run error will land on.
func startEngine(ctx context.Context, dev tun.Device, link *transport.Link, tf transform.Transform) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- New(dev, link, tf).Run(ctx)
	}()
	return errCh
}

func waitPacket(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for packet")
		return nil
	}
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for engine to stop")
		return nil
	}
}

// newTCPLinkPair connects two Links over loopback TCP.
func newTCPLinkPair(t *testing.T, ctx context.Context) (*transport.Link, *transport.Link) {
	t.Helper()

	pl, err := transport.NewPeerListener("127.0.0.1:0", false)
	if err != nil {
		t.Fatalf("NewPeerListener: %v", err)
	}
	t.Cleanup(func() { pl.Close() })

	serverCh := make(chan *transport.Link, 1)
	go func() {
		link, err := pl.AwaitLink(ctx)
		if err != nil {
			return
		}
		serverCh <- link
	}()

	client, err := transport.Dial(ctx, pl.Addr().String(), false)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	select {
	case server := <-serverCh:
		return client, server
	case <-time.After(5 * time.Second):
		t.Fatal("server never accepted")
		return nil, nil
	}
}

// The reference scenario: payload 01 02 03 04 under key 0x42 must cross the
// wire as exactly one frame carrying 43 40 41 46.
func TestEngineDeviceToPeerWire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local, remote := net.Pipe()
	dev := newMemDevice()
	defer dev.Close()

	runErr := startEngine(ctx, dev, transport.NewLink(local), transform.XOR{Key: 0x42})

	dev.deliver <- []byte{0x01, 0x02, 0x03, 0x04}

	payload, err := protocol.ReadFrame(remote)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if want := []byte{0x43, 0x40, 0x41, 0x46}; !bytes.Equal(payload, want) {
		t.Fatalf("wire payload = %x, want %x", payload, want)
	}

	cancel()
	if err := waitErr(t, runErr); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
}

// Inbound frames are decrypted and injected as exactly one device write.
func TestEnginePeerToDevice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local, remote := net.Pipe()
	dev := newMemDevice()
	defer dev.Close()

	startEngine(ctx, dev, transport.NewLink(local), transform.XOR{Key: 0x42})

	// The peer sends the transformed payload; the engine must undo it.
	go protocol.WriteFrame(remote, []byte{0x43, 0x40, 0x41, 0x46})

	got := waitPacket(t, dev.inject)
	if want := []byte{0x01, 0x02, 0x03, 0x04}; !bytes.Equal(got, want) {
		t.Fatalf("injected packet = %x, want %x", got, want)
	}

	// One frame, one write. Nothing else may arrive.
	time.Sleep(50 * time.Millisecond)
	select {
	case extra := <-dev.inject:
		t.Fatalf("unexpected second injection: %x", extra)
	default:
	}
}

// Two engines over a loopback TCP connection must carry both directions at
// once and keep each direction in source order. TCP rather than net.Pipe:
// the engines move one packet at a time, so simultaneous load needs the
// socket buffers a real channel has.
func TestEngineBidirectionalOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	linkA, linkB := newTCPLinkPair(t, ctx)
	devA := newMemDevice()
	devB := newMemDevice()
	defer devA.Close()
	defer devB.Close()

	tf := transform.XOR{Key: 0x42}
	startEngine(ctx, devA, linkA, tf)
	startEngine(ctx, devB, linkB, tf)

	const count = 100
	numbered := func(dir byte, i int) []byte {
		p := make([]byte, 8)
		p[0] = dir
		binary.BigEndian.PutUint32(p[4:], uint32(i))
		return p
	}

	go func() {
		for i := 0; i < count; i++ {
			devA.deliver <- numbered('a', i)
		}
	}()
	go func() {
		for i := 0; i < count; i++ {
			devB.deliver <- numbered('b', i)
		}
	}()

	var wg sync.WaitGroup
	check := func(dev *memDevice, dir byte) {
		defer wg.Done()
		for i := 0; i < count; i++ {
			select {
			case p := <-dev.inject:
				if p[0] != dir {
					t.Errorf("direction %c: packet #%d tagged %c", dir, i, p[0])
					return
				}
				if got := binary.BigEndian.Uint32(p[4:]); got != uint32(i) {
					t.Errorf("direction %c: packet #%d arrived as #%d", dir, i, got)
					return
				}
			case <-time.After(5 * time.Second):
				t.Errorf("direction %c: timed out at packet #%d", dir, i)
				return
			}
		}
	}

	wg.Add(2)
	go check(devB, 'a')
	go check(devA, 'b')
	wg.Wait()
}

func TestEngineStopsOnPeerFailure(t *testing.T) {
	var mid bytes.Buffer
	protocol.WriteFrame(&mid, make([]byte, 10))

	cases := []struct {
		name string
		send []byte
		want error
	}{
		{"clean disconnect", nil, transport.ErrChannelBroken},
		{"mid-frame disconnect", mid.Bytes()[:protocol.HeaderSize+3], transport.ErrProtocolViolation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			local, remote := net.Pipe()
			dev := newMemDevice()
			defer dev.Close()

			runErr := startEngine(ctx, dev, transport.NewLink(local), transform.XOR{Key: 0x42})

			go func() {
				if len(tc.send) > 0 {
					remote.Write(tc.send)
				}
				remote.Close()
			}()

			if err := waitErr(t, runErr); !errors.Is(err, tc.want) {
				t.Fatalf("Run = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEngineStopsOnDeviceClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local, remote := net.Pipe()
	defer remote.Close()
	dev := newMemDevice()

	runErr := startEngine(ctx, dev, transport.NewLink(local), transform.XOR{Key: 0x42})

	dev.Close()

	if err := waitErr(t, runErr); !errors.Is(err, tun.ErrDeviceClosed) {
		t.Fatalf("Run = %v, want ErrDeviceClosed", err)
	}
}

// Shutdown must release the channel: the peer sees the stream end.
func TestEngineClosesLinkOnExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	local, remote := net.Pipe()
	dev := newMemDevice()
	defer dev.Close()

	runErr := startEngine(ctx, dev, transport.NewLink(local), transform.XOR{Key: 0x42})

	cancel()
	if err := waitErr(t, runErr); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if _, err := protocol.ReadFrame(remote); err == nil {
		t.Fatal("peer still readable after engine exit")
	}
}

// Full path: two endpoints over a real loopback TCP connection, in-memory
// devices on both ends, default key.
func TestEngineEndToEndTCP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientLink, serverLink := newTCPLinkPair(t, ctx)

	tf, err := transform.FromKey("42")
	if err != nil {
		t.Fatalf("FromKey: %v", err)
	}

	clientDev := newMemDevice()
	serverDev := newMemDevice()
	defer clientDev.Close()
	defer serverDev.Close()

	startEngine(ctx, clientDev, clientLink, tf)
	startEngine(ctx, serverDev, serverLink, tf)

	// Ping out, pong back.
	clientDev.deliver <- []byte{0x01, 0x02, 0x03, 0x04}
	if got := waitPacket(t, serverDev.inject); !bytes.Equal(got, []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Fatalf("server received %x", got)
	}

	serverDev.deliver <- []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if got := waitPacket(t, clientDev.inject); !bytes.Equal(got, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("client received %x", got)
	}
}
