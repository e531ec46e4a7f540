//go:build unix

package metadata

import (
	"net"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

func AddrPortFromSockaddr(sa unix.Sockaddr) netip.AddrPort {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(addr.Addr), uint16(addr.Port))
	case *unix.SockaddrInet6:
		ip := netip.AddrFrom16(addr.Addr)
		if addr.ZoneId != 0 && !ip.Is4In6() {
			ip = ip.WithZone(strconv.FormatUint(uint64(addr.ZoneId), 10))
		}
		return netip.AddrPortFrom(ip.Unmap(), uint16(addr.Port))
	default:
		return netip.AddrPort{}
	}
}

// AddrPortToSockaddr encodes addrPort for a socket of the given family, mapping IPv4
// addresses into IPv6 for AF_INET6 sockets.
func AddrPortToSockaddr(addrPort netip.AddrPort, family int) unix.Sockaddr {
	addr := addrPort.Addr().Unmap()
	if family == unix.AF_INET && addr.Is4() {
		return &unix.SockaddrInet4{
			Port: int(addrPort.Port()),
			Addr: addr.As4(),
		}
	}
	sa := &unix.SockaddrInet6{
		Port: int(addrPort.Port()),
		Addr: addr.As16(),
	}
	if zone := addr.Zone(); zone != "" {
		if zoneID, err := strconv.ParseUint(zone, 10, 32); err == nil {
			sa.ZoneId = uint32(zoneID)
		} else if iif, err := net.InterfaceByName(zone); err == nil {
			sa.ZoneId = uint32(iif.Index)
		}
	}
	return sa
}

func FamilyOf(addr netip.Addr) int {
	if addr.Unmap().Is4() {
		return unix.AF_INET
	}
	return unix.AF_INET6
}
