//go:build unix

package socket

import (
	"errors"
	"io"
	"net/netip"

	"github.com/sagernet/sing-stream/common/control"
	E "github.com/sagernet/sing-stream/common/exceptions"
	M "github.com/sagernet/sing-stream/common/metadata"
	N "github.com/sagernet/sing-stream/common/network"
	"github.com/sagernet/sing-stream/common/ringbuf"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type socketKind uint8

const (
	kindStream socketKind = iota
	kindListener
	kindMulticast
)

var (
	_ N.Stream         = (*Socket)(nil)
	_ N.BufferedStream = (*Socket)(nil)
)

// Socket is one non-blocking host socket: a TCP connection, a TCP listener or a UDP
// multicast endpoint.
type Socket struct {
	N.Header
	ctx    *N.Context
	logger logrus.FieldLogger
	fd     int
	flags  N.Flags
	family int
	kind   socketKind

	connected    bool
	writeBlocked bool
	ring         *ringbuf.Buffer

	local      netip.AddrPort
	group      netip.AddrPort
	interfaces []multicastInterface
}

func newSocket(ctx *N.Context, logger logrus.FieldLogger, fd int, family int, kind socketKind, flags N.Flags) *Socket {
	s := &Socket{
		ctx:       ctx,
		logger:    logger,
		fd:        fd,
		flags:     flags,
		family:    family,
		kind:      kind,
		connected: kind != kindStream,
	}
	s.Init(Interface)
	return s
}

func (s *Socket) String() string {
	switch s.kind {
	case kindListener:
		return "listener " + s.local.String()
	case kindMulticast:
		return "multicast " + s.group.String()
	default:
		return "stream " + s.local.String()
	}
}

// LocalAddr returns the bound address, including an ephemeral port chosen by the
// host stack.
func (s *Socket) LocalAddr() netip.AddrPort {
	return s.local
}

func (s *Socket) Buffered() int {
	if s.ring == nil {
		return 0
	}
	return s.ring.Len()
}

func (s *Socket) enableCoalescing() error {
	err := control.Apply("tcp", "", s.fd, control.NoDelay(true))
	if err != nil {
		return E.Cause(err, "set TCP_NODELAY")
	}
	s.ring = ringbuf.NewSize(ringbuf.DefaultSize)
	return nil
}

func (s *Socket) wantsWrite() bool {
	return !s.connected || s.writeBlocked || s.ring != nil && !s.ring.IsEmpty()
}

func (s *Socket) Read(p []byte) (int, error) {
	if err := s.Check(); err != nil {
		return 0, err
	}
	if s.kind != kindStream {
		return 0, E.Cause(N.ErrNotSupported, "read from ", s)
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := unix.Read(s.fd, p)
	if err != nil {
		if isWouldBlock(err) || !s.connected && errors.Is(err, unix.ENOTCONN) {
			return 0, nil
		}
		return 0, E.Cause(err, "read")
	}
	if n == 0 {
		return 0, io.EOF
	}
	s.connected = true
	return n, nil
}

// Write sends p, or with coalescing enabled stages it in the ring buffer until Flush
// or until the buffer fills. A short count means the rest must be retried after Select
// reports the stream writable.
func (s *Socket) Write(p []byte) (int, error) {
	if err := s.Check(); err != nil {
		return 0, err
	}
	if s.kind != kindStream {
		return 0, E.Cause(N.ErrNotSupported, "write to ", s)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if s.ring == nil {
		return s.send(p)
	}
	var written int
	for {
		written += s.ring.Put(p[written:])
		if written == len(p) {
			return written, nil
		}
		err := s.flushRing()
		if err != nil {
			return written, err
		}
		if s.ring.IsFull() {
			return written, nil
		}
	}
}

func (s *Socket) send(p []byte) (int, error) {
	n, err := unix.SendmsgN(s.fd, p, nil, nil, sendFlags)
	if err != nil {
		if isWouldBlock(err) || !s.connected && errors.Is(err, unix.ENOTCONN) {
			s.writeBlocked = true
			return 0, nil
		}
		return 0, E.Cause(err, "write")
	}
	s.connected = true
	s.writeBlocked = n < len(p)
	return n, nil
}

func (s *Socket) Flush() error {
	if err := s.Check(); err != nil {
		return err
	}
	if s.ring == nil {
		return nil
	}
	return s.flushRing()
}

// flushRing hands the staged bytes to the host stack under cork, so the up to two
// wrapped segments leave as full frames.
func (s *Socket) flushRing() error {
	if s.ring.IsEmpty() {
		return nil
	}
	err := control.Apply("tcp", "", s.fd, control.Cork(true))
	if err != nil {
		s.logger.WithError(err).Debug("enable cork")
	}
	defer func() {
		err := control.Apply("tcp", "", s.fd, control.Cork(false))
		if err != nil {
			s.logger.WithError(err).Debug("disable cork")
		}
	}()
	for range 2 {
		first, _ := s.ring.Readable()
		if len(first) == 0 {
			return nil
		}
		n, err := s.send(first)
		if n > 0 {
			s.ring.Discard(n)
		}
		if err != nil {
			return err
		}
		if n < len(first) {
			return nil
		}
	}
	return nil
}

// Close releases the socket. Connected streams flush staged bytes, half close and drain
// what the peer already sent, so the host stack finishes with FIN instead of reset.
func (s *Socket) Close() error {
	if err := s.Check(); err != nil {
		return err
	}
	s.Release()
	if s.kind == kindStream && s.settleConnect() {
		if s.ring != nil {
			err := s.flushRing()
			if err != nil {
				s.logger.WithError(err).Debug("flush on close")
			}
		}
		unix.Shutdown(s.fd, unix.SHUT_WR)
		var buffer [64]byte
		for range drainLimit {
			n, err := unix.Read(s.fd, buffer[:])
			if err != nil || n <= 0 {
				break
			}
		}
	}
	s.ring = nil
	s.logger.Debug("closed ", s)
	err := unix.Close(s.fd)
	if err != nil {
		return E.Cause(err, "close")
	}
	return nil
}

// settleConnect picks up a connect the kernel completed while no Select or I/O on
// the stream observed it.
func (s *Socket) settleConnect() bool {
	if s.connected || control.SocketError(s.fd) != nil {
		return s.connected
	}
	if _, err := unix.Getpeername(s.fd); err == nil {
		s.connected = true
	}
	return s.connected
}

// Accept returns a pending connection of a listener, or ErrNoNewConnection. Passing
// FlagDefault makes the accepted stream inherit the listener's coalescing setting.
func (s *Socket) Accept(flags N.Flags) (N.Stream, netip.AddrPort, error) {
	if err := s.Check(); err != nil {
		return nil, netip.AddrPort{}, err
	}
	if s.kind != kindListener {
		return nil, netip.AddrPort{}, E.Cause(N.ErrNotSupported, "accept on ", s)
	}
	fd, sa, err := sysAccept(s.fd)
	if err != nil {
		if isWouldBlock(err) || errors.Is(err, unix.ECONNABORTED) || errors.Is(err, unix.EINTR) {
			return nil, netip.AddrPort{}, N.ErrNoNewConnection
		}
		return nil, netip.AddrPort{}, E.Cause(err, "accept")
	}
	if flags == N.FlagDefault {
		flags = s.flags &^ (N.FlagListen | N.FlagUseGlobalSettings)
	} else {
		flags = s.ctx.ResolveFlags(flags)
	}
	remote := M.AddrPortFromSockaddr(sa)
	conn := newSocket(s.ctx, s.ctx.NewLogger("socket"), fd, s.family, kindStream, flags|N.FlagConnect)
	conn.connected = true
	if local, err := unix.Getsockname(fd); err == nil {
		conn.local = M.AddrPortFromSockaddr(local)
	}
	if flags.Has(N.FlagNoDelay) {
		err = conn.enableCoalescing()
		if err != nil {
			unix.Close(fd)
			return nil, netip.AddrPort{}, err
		}
	}
	conn.logger.Debug("accepted ", remote, " on ", s.local)
	return conn, remote, nil
}

// ReceivePacket reads one datagram of a multicast endpoint.
func (s *Socket) ReceivePacket(p []byte) (int, netip.AddrPort, error) {
	if err := s.Check(); err != nil {
		return 0, netip.AddrPort{}, err
	}
	if s.kind != kindMulticast {
		return 0, netip.AddrPort{}, E.Cause(N.ErrNotSupported, "receive packet on ", s)
	}
	n, from, err := unix.Recvfrom(s.fd, p, 0)
	if err != nil {
		if isWouldBlock(err) {
			return 0, netip.AddrPort{}, nil
		}
		return 0, netip.AddrPort{}, E.Cause(err, "receive packet")
	}
	return n, M.AddrPortFromSockaddr(from), nil
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}
