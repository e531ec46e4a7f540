//go:build unix && !linux && !darwin && !freebsd

package control

import "golang.org/x/sys/unix"

// Without a cork option, toggling Nagle is the closest way to release a burst at once.
func setCork(fd int, enabled bool) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolToInt(!enabled))
}
