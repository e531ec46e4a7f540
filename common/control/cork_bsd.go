//go:build darwin || freebsd

package control

import "golang.org/x/sys/unix"

func setCork(fd int, enabled bool) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NOPUSH, boolToInt(enabled))
}
