package control

import (
	"net"
	"net/netip"

	"github.com/sagernet/sing-stream/common"
	M "github.com/sagernet/sing-stream/common/metadata"
)

type InterfaceFinder interface {
	Update() error
	Interfaces() []Interface
	ByName(name string) (*Interface, error)
	ByIndex(index int) (*Interface, error)
	ByAddr(addr netip.Addr) (*Interface, error)
}

type Interface struct {
	Index        int
	MTU          int
	Name         string
	HardwareAddr net.HardwareAddr
	Flags        net.Flags
	Addresses    []netip.Prefix
}

func InterfaceFromNet(iif net.Interface) (Interface, error) {
	ifAddrs, err := iif.Addrs()
	if err != nil {
		return Interface{}, err
	}
	return InterfaceFromNetAddrs(iif, common.Map(ifAddrs, M.PrefixFromNet)), nil
}

func InterfaceFromNetAddrs(iif net.Interface, addresses []netip.Prefix) Interface {
	return Interface{
		Index:        iif.Index,
		MTU:          iif.MTU,
		Name:         iif.Name,
		HardwareAddr: iif.HardwareAddr,
		Flags:        iif.Flags,
		Addresses:    common.Filter(addresses, netip.Prefix.IsValid),
	}
}

func (i Interface) IsMulticastCapable() bool {
	return i.Flags&net.FlagUp != 0 && i.Flags&net.FlagMulticast != 0
}

// Address returns the first address of the interface in the family of like.
func (i Interface) Address(like netip.Addr) (netip.Addr, bool) {
	for _, prefix := range i.Addresses {
		addr := prefix.Addr()
		if addr.Is4() == like.Is4() {
			return addr, true
		}
	}
	return netip.Addr{}, false
}

func (i Interface) HasAddress(addr netip.Addr) bool {
	return common.Any(i.Addresses, func(it netip.Prefix) bool {
		return it.Addr() == addr.Unmap()
	})
}

func findByName(interfaces []Interface, name string) *Interface {
	for index := range interfaces {
		if interfaces[index].Name == name {
			return &interfaces[index]
		}
	}
	return nil
}

func findByIndex(interfaces []Interface, ifIndex int) *Interface {
	for index := range interfaces {
		if interfaces[index].Index == ifIndex {
			return &interfaces[index]
		}
	}
	return nil
}

func findByAddr(interfaces []Interface, addr netip.Addr) *Interface {
	for index := range interfaces {
		if interfaces[index].HasAddress(addr) {
			return &interfaces[index]
		}
	}
	for index := range interfaces {
		for _, prefix := range interfaces[index].Addresses {
			if prefix.Contains(addr.Unmap()) {
				return &interfaces[index]
			}
		}
	}
	return nil
}

// lookup queries the cached list, refreshing it once on a miss.
func lookup(finder InterfaceFinder, query func([]Interface) *Interface) (*Interface, bool, error) {
	if iif := query(finder.Interfaces()); iif != nil {
		return iif, true, nil
	}
	err := finder.Update()
	if err != nil {
		return nil, false, err
	}
	iif := query(finder.Interfaces())
	return iif, iif != nil, nil
}
