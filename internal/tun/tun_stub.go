//go:build !linux

package tun

func open(Config) (Device, error) {
	return nil, ErrUnsupported
}
