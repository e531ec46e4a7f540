package metadata

import (
	"net"
	"net/netip"
)

// AddrFromIP converts ip, unmapping IPv4-mapped IPv6 addresses.
func AddrFromIP(ip net.IP) netip.Addr {
	addr, _ := netip.AddrFromSlice(ip)
	return addr.Unmap()
}

// PrefixFromNet converts an interface address as returned by net.Interface.Addrs or
// netlink. Other address kinds yield an invalid prefix.
func PrefixFromNet(netAddr net.Addr) netip.Prefix {
	switch addr := netAddr.(type) {
	case *net.IPNet:
		bits, _ := addr.Mask.Size()
		return netip.PrefixFrom(AddrFromIP(addr.IP), bits)
	case *net.IPAddr:
		ip := AddrFromIP(addr.IP)
		return netip.PrefixFrom(ip, ip.BitLen())
	default:
		return netip.Prefix{}
	}
}
