//go:build unix

package socket

import (
	"errors"

	"github.com/sagernet/sing-stream/common/control"
	E "github.com/sagernet/sing-stream/common/exceptions"
	M "github.com/sagernet/sing-stream/common/metadata"
	N "github.com/sagernet/sing-stream/common/network"

	"golang.org/x/sys/unix"
)

var sysSendto = unix.Sendto

// joinGroup subscribes a receiver on every selected interface. It fails only when no
// interface could join.
func (s *Socket) joinGroup() error {
	var errs []error
	var joined int
	for _, iif := range s.interfaces {
		err := control.Apply("udp", s.group.String(), s.fd, control.JoinGroup(s.group.Addr(), iif.Index, iif.Addr))
		if err != nil && !errors.Is(err, unix.EADDRINUSE) {
			s.logger.WithError(err).Warn("join ", s.group.Addr(), " on ", iif)
			errs = append(errs, E.Cause(err, "join on ", iif))
			continue
		}
		joined++
	}
	if joined == 0 {
		return E.Extend(N.ErrMulticastJoinFailed, E.Errors(errs...), "join ", s.group.Addr())
	}
	return nil
}

// SendPacket sends p to the group once per selected interface. Partial failures are
// reported with ErrSendMulticastFailed while the byte count still reflects a datagram
// that left on some interface. Interfaces that would block are skipped; when nothing
// was sent and nothing failed the result is (0, nil).
func (s *Socket) SendPacket(p []byte) (int, error) {
	if err := s.Check(); err != nil {
		return 0, err
	}
	if s.kind != kindMulticast {
		return 0, E.Cause(N.ErrNotSupported, "send packet on ", s)
	}
	destination := M.AddrPortToSockaddr(s.group, s.family)
	var errs []error
	var sent int
	for _, iif := range s.interfaces {
		err := control.Apply("udp", s.group.String(), s.fd, control.MulticastInterface(s.group.Addr(), iif.Index, iif.Addr))
		if err == nil {
			err = sysSendto(s.fd, p, sendFlags, destination)
		}
		if isWouldBlock(err) {
			s.logger.Debug("send on ", iif, " would block")
			continue
		}
		if err != nil {
			errs = append(errs, E.Cause(err, "send on ", iif))
			continue
		}
		sent++
	}
	if len(errs) > 0 {
		err := E.Extend(N.ErrSendMulticastFailed, E.Errors(errs...), "send to ", s.group)
		s.logger.WithError(err).Debug("send multicast")
		if sent == 0 {
			return 0, err
		}
		return len(p), err
	}
	if sent == 0 {
		return 0, nil
	}
	return len(p), nil
}
