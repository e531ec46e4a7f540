//go:build unix

package socket

import (
	"errors"
	"time"

	E "github.com/sagernet/sing-stream/common/exceptions"
	N "github.com/sagernet/sing-stream/common/network"

	"golang.org/x/sys/unix"
)

// Select polls every socket for input, and for output while a connect is pending, a
// write was refused or coalesced bytes wait for Flush. A pending wake wins over stream
// events; otherwise the lowest ready index is reported. A zero timeout waits forever.
func (*socketInterface) Select(streams []N.Stream, waker N.Waker, timeout time.Duration) (N.SelectResult, error) {
	none := N.SelectResult{Index: N.SelectIndexNone}
	if len(streams) > N.SelectMax {
		return none, E.Cause(N.ErrNotSupported, "select over ", len(streams), " streams, limit is ", N.SelectMax)
	}
	sockets := make([]*Socket, 0, len(streams))
	indexes := make([]int, 0, len(streams))
	fds := make([]unix.PollFd, 0, len(streams)+1)
	for index, stream := range streams {
		if stream == nil {
			continue
		}
		socket, isSocket := stream.(*Socket)
		if !isSocket {
			return none, E.Cause(N.ErrNotSupported, "select over foreign stream")
		}
		if err := socket.Check(); err != nil {
			return none, err
		}
		events := int16(unix.POLLIN | unix.POLLPRI)
		if socket.wantsWrite() {
			events |= unix.POLLOUT
		}
		sockets = append(sockets, socket)
		indexes = append(indexes, index)
		fds = append(fds, unix.PollFd{Fd: int32(socket.fd), Events: events})
	}
	var wakeSignal *Waker
	if waker != nil {
		var isWaker bool
		wakeSignal, isWaker = waker.(*Waker)
		if !isWaker {
			return none, E.Cause(N.ErrNotSupported, "select with foreign waker")
		}
		fds = append(fds, unix.PollFd{Fd: int32(wakeSignal.readFD), Events: unix.POLLIN})
	}
	if len(fds) == 0 {
		return none, E.Cause(N.ErrNotSupported, "select without streams")
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		pollTimeout := -1
		if timeout > 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return N.SelectResult{Index: N.SelectIndexNone, Event: N.EventTimeout}, nil
			}
			pollTimeout = int((remaining + time.Millisecond - 1) / time.Millisecond)
		}
		n, err := unix.Poll(fds, pollTimeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return none, E.Cause(err, "poll")
		}
		if n > 0 {
			break
		}
	}
	if wakeSignal != nil && fds[len(fds)-1].Revents != 0 {
		wakeSignal.drain()
		return N.SelectResult{Index: N.SelectIndexNone, Event: N.EventWake}, nil
	}
	for i, socket := range sockets {
		event := socket.pollEvent(fds[i].Revents)
		if event != N.EventUnknown {
			return N.SelectResult{Index: indexes[i], Event: event}, nil
		}
	}
	return N.SelectResult{Index: N.SelectIndexNone, Event: N.EventUnknown}, nil
}

func (s *Socket) pollEvent(revents int16) N.Event {
	switch {
	case revents == 0:
		return N.EventUnknown
	case revents&(unix.POLLERR|unix.POLLNVAL) != 0:
		s.connected = true
		return N.EventClose
	case revents&(unix.POLLIN|unix.POLLPRI) != 0:
		if s.kind == kindListener {
			return N.EventAccept
		}
		return N.EventRead
	case revents&unix.POLLHUP != 0:
		return N.EventClose
	case revents&unix.POLLOUT != 0:
		if !s.connected {
			s.connected = true
			return N.EventConnect
		}
		s.writeBlocked = false
		return N.EventWrite
	}
	return N.EventUnknown
}
