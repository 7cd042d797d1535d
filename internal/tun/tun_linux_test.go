package tun

import (
	"errors"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestClassifyErrno(t *testing.T) {
	cases := []struct {
		errno unix.Errno
		want  error
	}{
		{unix.EBUSY, ErrNameInUse},
		{unix.EPERM, ErrDeviceUnavailable},
		{unix.EACCES, ErrDeviceUnavailable},
		{unix.EINVAL, ErrDeviceUnavailable},
	}
	for _, tc := range cases {
		if err := classifyErrno(tc.errno, "tun0"); !errors.Is(err, tc.want) {
			t.Errorf("classifyErrno(%v) = %v, want %v", tc.errno, err, tc.want)
		}
	}
}

// TestDeviceLifecycle opens a real interface, so it needs CAP_NET_ADMIN.
func TestDeviceLifecycle(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}

	dev, err := Open(Config{Name: "tuntest0"})
	if errors.Is(err, ErrDeviceUnavailable) {
		t.Skipf("no usable /dev/net/tun: %v", err)
	}
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if dev.Name() != "tuntest0" {
		t.Errorf("Name = %q, want tuntest0", dev.Name())
	}

	// Nothing routes into a fresh, down interface, so this read can only
	// return via Close.
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 65535)
		_, err := dev.ReadPacket(buf)
		readErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-readErr:
		if !errors.Is(err, ErrDeviceClosed) {
			t.Fatalf("ReadPacket after Close = %v, want ErrDeviceClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadPacket did not unblock after Close")
	}

	if err := dev.WritePacket([]byte{0x45}); !errors.Is(err, ErrDeviceClosed) {
		t.Fatalf("WritePacket after Close = %v, want ErrDeviceClosed", err)
	}
}
