//go:build unix

package socket

import (
	"errors"
	"sync"

	E "github.com/sagernet/sing-stream/common/exceptions"
	N "github.com/sagernet/sing-stream/common/network"

	"golang.org/x/sys/unix"
)

var _ N.Waker = (*Waker)(nil)

// Waker is a self pipe whose read end joins every Select it is passed to.
type Waker struct {
	access  sync.RWMutex
	readFD  int
	writeFD int
	closed  bool
}

func NewWaker() (*Waker, error) {
	fds, err := sysPipe()
	if err != nil {
		return nil, E.Cause(err, "create wake pipe")
	}
	return &Waker{readFD: fds[0], writeFD: fds[1]}, nil
}

func (w *Waker) Wake() error {
	w.access.RLock()
	defer w.access.RUnlock()
	if w.closed {
		return N.ErrClosed
	}
	_, err := unix.Write(w.writeFD, []byte{1})
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return E.Cause(err, "wake")
	}
	return nil
}

func (w *Waker) drain() {
	var buffer [64]byte
	for {
		n, err := unix.Read(w.readFD, buffer[:])
		if err != nil || n < len(buffer) {
			return
		}
	}
}

func (w *Waker) Close() error {
	w.access.Lock()
	defer w.access.Unlock()
	if w.closed {
		return N.ErrClosed
	}
	w.closed = true
	return E.Errors(unix.Close(w.readFD), unix.Close(w.writeFD))
}
