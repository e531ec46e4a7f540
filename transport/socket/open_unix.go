//go:build unix

package socket

import (
	"context"
	"errors"
	"net/netip"

	"github.com/sagernet/sing-stream/common/control"
	E "github.com/sagernet/sing-stream/common/exceptions"
	M "github.com/sagernet/sing-stream/common/metadata"
	N "github.com/sagernet/sing-stream/common/network"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

func (*socketInterface) Open(ctx *N.Context, spec string, flags N.Flags) (N.Stream, error) {
	if ctx == nil {
		return nil, N.ErrNotInitialized
	}
	flags = ctx.ResolveFlags(flags)
	endpoint, err := M.ParseEndpoint(spec, DefaultPort)
	if err != nil {
		return nil, E.Extend(N.ErrAddressInvalid, err, "open ", spec)
	}
	multicast := flags.Has(N.FlagMulticast)
	listen := flags.Has(N.FlagListen)
	addr, err := endpoint.Resolve(context.Background(), listen && !multicast)
	if err != nil {
		return nil, E.Extend(N.ErrAddressInvalid, err, "open ", spec)
	}
	logger := ctx.NewLogger("socket").WithField("endpoint", endpoint.String())
	switch {
	case multicast:
		if !addr.IsMulticast() {
			return nil, E.Cause(N.ErrAddressInvalid, "open ", spec, ": ", addr, " is not a multicast group")
		}
		return openMulticast(ctx, logger, endpoint, netip.AddrPortFrom(addr, endpoint.Port), flags)
	case listen:
		return openListener(ctx, logger, netip.AddrPortFrom(addr, endpoint.Port), flags)
	default:
		return openConnector(ctx, logger, netip.AddrPortFrom(addr, endpoint.Port), flags)
	}
}

func openConnector(ctx *N.Context, logger logrus.FieldLogger, destination netip.AddrPort, flags N.Flags) (*Socket, error) {
	family := M.FamilyOf(destination.Addr())
	fd, err := sysSocket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, E.Cause(err, "create socket")
	}
	s := newSocket(ctx, logger, fd, family, kindStream, flags)
	if flags.Has(N.FlagNoDelay) {
		err = s.enableCoalescing()
		if err != nil {
			unix.Close(fd)
			return nil, err
		}
	}
	err = unix.Connect(fd, M.AddrPortToSockaddr(destination, family))
	switch {
	case err == nil:
		s.connected = true
	case errors.Is(err, unix.EINPROGRESS), errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
	default:
		unix.Close(fd)
		return nil, E.Cause(err, "connect ", destination)
	}
	if local, err := unix.Getsockname(fd); err == nil {
		s.local = M.AddrPortFromSockaddr(local)
	}
	logger.Debug("connecting ", s.local, " => ", destination)
	return s, nil
}

func openListener(ctx *N.Context, logger logrus.FieldLogger, bind netip.AddrPort, flags N.Flags) (*Socket, error) {
	family := M.FamilyOf(bind.Addr())
	fd, err := sysSocket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, E.Cause(err, "create socket")
	}
	var funcs []control.Func
	if !flags.Has(N.FlagNoReuse) {
		funcs = append(funcs, control.ReuseAddr())
	}
	if family == unix.AF_INET6 && bind.Addr().IsUnspecified() {
		funcs = append(funcs, control.DualStack())
	}
	err = control.Apply("tcp", bind.String(), fd, funcs...)
	if err == nil {
		err = unix.Bind(fd, M.AddrPortToSockaddr(bind, family))
	}
	if err == nil {
		err = unix.Listen(fd, listenBacklog)
	}
	if err != nil {
		unix.Close(fd)
		return nil, E.Cause(err, "listen ", bind)
	}
	s := newSocket(ctx, logger, fd, family, kindListener, flags)
	s.local = bind
	if local, err := unix.Getsockname(fd); err == nil {
		s.local = M.AddrPortFromSockaddr(local)
	}
	logger.Info("listening on ", s.local)
	return s, nil
}

func openMulticast(ctx *N.Context, logger logrus.FieldLogger, endpoint M.Endpoint, group netip.AddrPort, flags N.Flags) (*Socket, error) {
	receive := flags.Has(N.FlagListen)
	family := M.FamilyOf(group.Addr())
	fd, err := sysSocket(family, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, E.Cause(err, "create socket")
	}
	s := newSocket(ctx, logger, fd, family, kindMulticast, flags)
	s.group = group
	s.interfaces = selectInterfaces(ctx, logger, group.Addr(), endpoint.OptionValues("interface"), receive)
	bind := netip.AddrPortFrom(netip.IPv4Unspecified(), 0)
	if family == unix.AF_INET6 {
		bind = netip.AddrPortFrom(netip.IPv6Unspecified(), 0)
	}
	var funcs []control.Func
	if receive {
		bind = netip.AddrPortFrom(bind.Addr(), group.Port())
		if !flags.Has(N.FlagNoReuse) {
			funcs = append(funcs, control.ReuseAddr())
		}
	} else {
		funcs = append(funcs, control.MulticastLoop(group.Addr(), true))
	}
	err = control.Apply("udp", group.String(), fd, funcs...)
	if err == nil {
		err = unix.Bind(fd, M.AddrPortToSockaddr(bind, family))
	}
	if err != nil {
		unix.Close(fd)
		return nil, E.Cause(err, "bind ", bind)
	}
	if receive {
		err = s.joinGroup()
		if err != nil {
			unix.Close(fd)
			return nil, err
		}
		logger.Info("joined ", group, " on ", len(s.interfaces), " interfaces")
	}
	if local, err := unix.Getsockname(fd); err == nil {
		s.local = M.AddrPortFromSockaddr(local)
	}
	return s, nil
}
