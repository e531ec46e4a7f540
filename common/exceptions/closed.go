package exceptions

import (
	"io"
	"net"
	"syscall"
)

func IsClosed(err error) bool {
	return IsMulti(err, io.EOF, net.ErrClosed, io.ErrClosedPipe, syscall.EPIPE, syscall.ECONNRESET)
}
