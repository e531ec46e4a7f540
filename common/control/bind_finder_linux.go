package control

import (
	"net/netip"

	"github.com/sagernet/sing-stream/common"
	E "github.com/sagernet/sing-stream/common/exceptions"
	M "github.com/sagernet/sing-stream/common/metadata"

	"github.com/vishvananda/netlink"
)

// NewNetlinkInterfaceFinder lists links and addresses over rtnetlink, which also
// reports interfaces the net package filters out.
func NewNetlinkInterfaceFinder() *DefaultInterfaceFinder {
	return &DefaultInterfaceFinder{source: netlinkInterfaces}
}

func NewInterfaceFinder() InterfaceFinder {
	return NewNetlinkInterfaceFinder()
}

func netlinkInterfaces() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, E.Cause(err, "list links")
	}
	interfaces := make([]Interface, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			return nil, E.Cause(err, "list addresses of ", attrs.Name)
		}
		interfaces = append(interfaces, Interface{
			Index:        attrs.Index,
			MTU:          attrs.MTU,
			Name:         attrs.Name,
			HardwareAddr: attrs.HardwareAddr,
			Flags:        attrs.Flags,
			Addresses: common.Filter(common.Map(addrs, func(it netlink.Addr) netip.Prefix {
				return M.PrefixFromNet(it.IPNet)
			}), netip.Prefix.IsValid),
		})
	}
	return interfaces, nil
}
