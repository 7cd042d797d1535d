// Package tun opens and configures the virtual network interface that the
// tunnel forwards packets through.
//
// A Device hands the process whole IP packets: every ReadPacket returns one
// outbound packet the kernel routed into the interface, and every
// WritePacket injects one packet back into the kernel's network stack. The
// interface carries no link-layer framing (IFF_NO_PI, TUN mode).
package tun

import (
	"errors"
	"fmt"
)

// ifNameMax is the kernel's interface name limit (IFNAMSIZ minus the
// trailing NUL).
const ifNameMax = 15

var (
	// ErrDeviceUnavailable reports that the TUN device node cannot be
	// opened at all: missing kernel support, missing /dev/net/tun, or
	// insufficient privileges.
	ErrDeviceUnavailable = errors.New("tun device unavailable")

	// ErrNameInUse reports that the requested interface name is already
	// claimed by another process.
	ErrNameInUse = errors.New("tun interface name in use")

	// ErrDeviceClosed reports I/O on a released handle.
	ErrDeviceClosed = errors.New("tun device closed")

	// ErrUnsupported reports that this platform has no TUN implementation.
	ErrUnsupported = errors.New("tun not supported on this platform")
)

// Config describes the interface to create. An empty Name lets the kernel
// pick one (tun0, tun1, …). Address and Routes are optional: when Address
// is empty the interface is left unconfigured and the operator brings it up
// by hand (see SetupCommands).
type Config struct {
	Name    string
	Address string   // local CIDR, e.g. "10.8.0.1/24"
	Routes  []string // CIDRs routed through the interface
	MTU     int      // applied only when Address is set
}

// Device is one open TUN interface handle.
//
// ReadPacket blocks until the kernel delivers the next packet, then copies
// it into buf and returns its length. WritePacket injects exactly one
// packet per call. Close releases the handle and unblocks a pending
// ReadPacket with ErrDeviceClosed.
type Device interface {
	ReadPacket(buf []byte) (int, error)
	WritePacket(p []byte) error
	Name() string
	Close() error
}

// Open creates the interface described by cfg and returns its handle.
// Failures are classified: ErrDeviceUnavailable when the device node cannot
// be opened, ErrNameInUse when the name is claimed elsewhere.
func Open(cfg Config) (Device, error) {
	if len(cfg.Name) > ifNameMax {
		return nil, fmt.Errorf("interface name %q exceeds %d bytes", cfg.Name, ifNameMax)
	}
	return open(cfg)
}
