package control

import (
	"syscall"
)

type Func = func(network, address string, conn syscall.RawConn) error

func Raw(rawConn syscall.RawConn, block func(fd uintptr) error) error {
	var innerErr error
	err := rawConn.Control(func(fd uintptr) {
		innerErr = block(fd)
	})
	if innerErr != nil {
		return innerErr
	}
	return err
}

// Apply runs funcs against a descriptor owned by the caller.
func Apply(network, address string, fd int, funcs ...Func) error {
	conn := FileDescriptor(fd)
	for _, fn := range funcs {
		if fn == nil {
			continue
		}
		if err := fn(network, address, conn); err != nil {
			return err
		}
	}
	return nil
}

// FileDescriptor exposes a raw descriptor as a syscall.RawConn so the same Funcs
// serve both net.Dialer and hand managed sockets.
type FileDescriptor int

func (fd FileDescriptor) Control(f func(fd uintptr)) error {
	f(uintptr(fd))
	return nil
}

func (fd FileDescriptor) Read(f func(fd uintptr) (done bool)) error {
	f(uintptr(fd))
	return nil
}

func (fd FileDescriptor) Write(f func(fd uintptr) (done bool)) error {
	f(uintptr(fd))
	return nil
}
