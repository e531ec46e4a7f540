//go:build unix

package control

import (
	"net/netip"
	"syscall"

	E "github.com/sagernet/sing-stream/common/exceptions"

	"golang.org/x/sys/unix"
)

// JoinGroup subscribes the socket to group on the interface with the given index and
// IPv4 address. A zero index and invalid address let the kernel pick the interface.
func JoinGroup(group netip.Addr, ifIndex int, ifAddr netip.Addr) Func {
	return func(network, address string, conn syscall.RawConn) error {
		return Raw(conn, func(fd uintptr) error {
			if group.Is4() {
				mreq := &unix.IPMreq{Multiaddr: group.As4()}
				if ifAddr.Is4() {
					mreq.Interface = ifAddr.As4()
				}
				return unix.SetsockoptIPMreq(int(fd), unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq)
			}
			mreq := &unix.IPv6Mreq{Multiaddr: group.As16(), Interface: uint32(ifIndex)}
			return unix.SetsockoptIPv6Mreq(int(fd), unix.IPPROTO_IPV6, unix.IPV6_JOIN_GROUP, mreq)
		})
	}
}

// MulticastInterface selects the outgoing interface for multicast datagrams. A zero
// index and invalid address restore the routing table default.
func MulticastInterface(group netip.Addr, ifIndex int, ifAddr netip.Addr) Func {
	return func(network, address string, conn syscall.RawConn) error {
		return Raw(conn, func(fd uintptr) error {
			if group.Is4() {
				var addr [4]byte
				if ifAddr.Is4() {
					addr = ifAddr.As4()
				} else if ifIndex != 0 {
					return E.New("interface ", ifIndex, " has no IPv4 address")
				}
				return unix.SetsockoptInet4Addr(int(fd), unix.IPPROTO_IP, unix.IP_MULTICAST_IF, addr)
			}
			return unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_IF, ifIndex)
		})
	}
}

func MulticastLoop(group netip.Addr, enabled bool) Func {
	return func(network, address string, conn syscall.RawConn) error {
		return Raw(conn, func(fd uintptr) error {
			if group.Is4() {
				return unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, boolToInt(enabled))
			}
			return unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_LOOP, boolToInt(enabled))
		})
	}
}
