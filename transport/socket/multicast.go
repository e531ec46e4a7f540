package socket

import (
	"net/netip"
	"strconv"

	"github.com/sagernet/sing-stream/common"
	"github.com/sagernet/sing-stream/common/control"
	N "github.com/sagernet/sing-stream/common/network"

	"github.com/sirupsen/logrus"
)

// multicastInterface is one interface a multicast endpoint joins or sends on. The zero
// value stands for the routing table default.
type multicastInterface struct {
	Name  string
	Index int
	Addr  netip.Addr
}

func (i multicastInterface) IsDefault() bool {
	return i.Index == 0 && !i.Addr.IsValid()
}

func (i multicastInterface) String() string {
	if i.IsDefault() {
		return "default"
	}
	if i.Name != "" {
		return i.Name
	}
	if !i.Addr.IsValid() {
		return "index " + strconv.Itoa(i.Index)
	}
	return i.Addr.String()
}

// selectInterfaces picks the interfaces for group: the endpoint's interface options,
// else the context NICs flagged for the direction, else every multicast capable
// interface. Interfaces without an address of the group's family fall back to the
// default route.
func selectInterfaces(ctx *N.Context, logger logrus.FieldLogger, group netip.Addr, named []string, receive bool) []multicastInterface {
	finder := ctx.InterfaceFinder
	var candidates []multicastInterface
	switch {
	case len(named) > 0:
		for _, name := range named {
			candidates = append(candidates, resolveInterface(finder, logger, name, netip.Addr{}, group))
		}
	case len(ctx.MulticastNICs(receive)) > 0:
		for _, nic := range ctx.MulticastNICs(receive) {
			candidates = append(candidates, resolveInterface(finder, logger, nic.Name, nic.Address, group))
		}
	case finder != nil:
		interfaces := finder.Interfaces()
		if len(interfaces) == 0 {
			err := finder.Update()
			if err != nil {
				logger.WithError(err).Warn("list interfaces")
			}
			interfaces = finder.Interfaces()
		}
		for _, iif := range common.Filter(interfaces, control.Interface.IsMulticastCapable) {
			candidates = append(candidates, multicastInterface{Name: iif.Name, Index: iif.Index, Addr: preferredAddress(iif, group)})
		}
	}
	var selected []multicastInterface
	for _, candidate := range candidates {
		if !candidate.IsDefault() && candidate.Addr.IsValid() && candidate.Addr.Unmap().Is4() != group.Unmap().Is4() {
			logger.Warn("interface ", candidate, " has no address in the family of ", group, ", using default route")
			candidate = multicastInterface{}
		}
		if !candidate.IsDefault() && !candidate.Addr.IsValid() && group.Is4() {
			logger.Warn("interface ", candidate, " has no IPv4 address, using default route")
			candidate = multicastInterface{}
		}
		if common.Contains(selected, candidate) {
			continue
		}
		selected = append(selected, candidate)
	}
	if len(selected) == 0 {
		selected = append(selected, multicastInterface{})
	}
	return selected
}

// resolveInterface matches an interface name or address against the finder. An
// unknown interface keeps the given address as a hint, or becomes the default route.
func resolveInterface(finder control.InterfaceFinder, logger logrus.FieldLogger, name string, addr netip.Addr, group netip.Addr) multicastInterface {
	if parsed, err := netip.ParseAddr(name); err == nil {
		name, addr = "", parsed
	}
	if finder == nil {
		return multicastInterface{Name: name, Addr: addr}
	}
	var (
		iif *control.Interface
		err error
	)
	if name != "" {
		iif, err = finder.ByName(name)
	} else if addr.IsValid() {
		iif, err = finder.ByAddr(addr)
	} else {
		return multicastInterface{}
	}
	if err != nil {
		if name != "" {
			logger.WithError(err).Warn("find interface ", name, ", using default route")
			return multicastInterface{}
		}
		return multicastInterface{Addr: addr}
	}
	if !addr.IsValid() {
		addr = preferredAddress(*iif, group)
	}
	return multicastInterface{Name: iif.Name, Index: iif.Index, Addr: addr}
}

func preferredAddress(iif control.Interface, group netip.Addr) netip.Addr {
	addr, _ := iif.Address(group)
	return addr
}
