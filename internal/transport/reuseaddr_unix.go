//go:build unix

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddr sets SO_REUSEADDR before bind.
func reuseAddr(network, address string, c syscall.RawConn) error {
	var soErr error
	if err := c.Control(func(fd uintptr) {
		soErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return soErr
}
