package tun

import (
	"errors"
	"fmt"
	"net"
	"os"
	"unsafe"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// nativeDevice is the Linux implementation backed by /dev/net/tun.
type nativeDevice struct {
	file *os.File
	name string
}

func open(cfg Config) (Device, error) {
	fd, err := unix.Open("/dev/net/tun", unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open /dev/net/tun: %v", ErrDeviceUnavailable, err)
	}

	var ifr struct {
		name  [16]byte
		flags uint16
		_     [22]byte
	}
	copy(ifr.name[:], cfg.Name)
	ifr.flags = unix.IFF_TUN | unix.IFF_NO_PI

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.TUNSETIFF, uintptr(unsafe.Pointer(&ifr)))
	if errno != 0 {
		unix.Close(fd)
		return nil, classifyErrno(errno, cfg.Name)
	}

	// The kernel fills in the name when cfg.Name was empty.
	name := unix.ByteSliceToString(ifr.name[:])

	// A nonblocking fd wrapped in os.File parks reads on the runtime
	// poller, so Close unblocks a pending ReadPacket.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set nonblock: %w", err)
	}

	dev := &nativeDevice{
		file: os.NewFile(uintptr(fd), "/dev/net/tun"),
		name: name,
	}

	if cfg.Address != "" {
		if err := configure(name, cfg); err != nil {
			dev.file.Close()
			return nil, err
		}
	}

	return dev, nil
}

// classifyErrno maps TUNSETIFF failures onto the package sentinels.
func classifyErrno(errno unix.Errno, name string) error {
	switch errno {
	case unix.EBUSY:
		return fmt.Errorf("%w: %s", ErrNameInUse, name)
	case unix.EPERM, unix.EACCES:
		return fmt.Errorf("%w: %v (need CAP_NET_ADMIN)", ErrDeviceUnavailable, errno)
	default:
		return fmt.Errorf("%w: TUNSETIFF: %v", ErrDeviceUnavailable, errno)
	}
}

// configure assigns the address, MTU, and routes via netlink and brings the
// link up. Requires the same privileges that opening the device did.
func configure(name string, cfg Config) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to find link %s: %w", name, err)
	}

	if cfg.MTU > 0 {
		if err := netlink.LinkSetMTU(link, cfg.MTU); err != nil {
			return fmt.Errorf("failed to set mtu %d: %w", cfg.MTU, err)
		}
	}

	addr, err := netlink.ParseAddr(cfg.Address)
	if err != nil {
		return fmt.Errorf("invalid interface address %q: %w", cfg.Address, err)
	}
	if err := netlink.AddrAdd(link, addr); err != nil {
		return fmt.Errorf("failed to add address %s: %w", cfg.Address, err)
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring %s up: %w", name, err)
	}

	for _, r := range cfg.Routes {
		_, dst, err := net.ParseCIDR(r)
		if err != nil {
			return fmt.Errorf("invalid route %q: %w", r, err)
		}
		route := &netlink.Route{
			LinkIndex: link.Attrs().Index,
			Dst:       dst,
			Scope:     netlink.SCOPE_LINK,
		}
		if err := netlink.RouteAdd(route); err != nil {
			return fmt.Errorf("failed to add route %s: %w", r, err)
		}
	}

	return nil
}

func (t *nativeDevice) ReadPacket(buf []byte) (int, error) {
	n, err := t.file.Read(buf)
	if err != nil {
		return n, classifyIOError("read", err)
	}
	return n, nil
}

func (t *nativeDevice) WritePacket(p []byte) error {
	if _, err := t.file.Write(p); err != nil {
		return classifyIOError("write", err)
	}
	return nil
}

func (t *nativeDevice) Name() string {
	return t.name
}

func (t *nativeDevice) Close() error {
	return t.file.Close()
}

func classifyIOError(op string, err error) error {
	if errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("%w: %s", ErrDeviceClosed, op)
	}
	return fmt.Errorf("tun %s: %w", op, err)
}
