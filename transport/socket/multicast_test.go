package socket

import (
	"net"
	"net/netip"
	"testing"

	"github.com/sagernet/sing-stream/common/control"
	"github.com/sagernet/sing-stream/common/log"
	N "github.com/sagernet/sing-stream/common/network"

	"github.com/stretchr/testify/assert"
)

func testFinder() control.InterfaceFinder {
	return control.NewStaticInterfaceFinder([]control.Interface{
		{
			Index:     1,
			Name:      "lo",
			Flags:     net.FlagUp | net.FlagLoopback,
			Addresses: []netip.Prefix{netip.MustParsePrefix("127.0.0.1/8")},
		},
		{
			Index: 2,
			Name:  "eth0",
			Flags: net.FlagUp | net.FlagMulticast,
			Addresses: []netip.Prefix{
				netip.MustParsePrefix("192.168.1.10/24"),
				netip.MustParsePrefix("fe80::1/64"),
			},
		},
		{
			Index:     3,
			Name:      "wlan0",
			Flags:     net.FlagUp | net.FlagMulticast,
			Addresses: []netip.Prefix{netip.MustParsePrefix("2001:db8::2/64")},
		},
	})
}

func TestSelectInterfaces(t *testing.T) {
	group4 := netip.MustParseAddr("239.1.2.3")
	group6 := netip.MustParseAddr("ff02::1")
	eth0 := multicastInterface{Name: "eth0", Index: 2, Addr: netip.MustParseAddr("192.168.1.10")}
	for _, testCase := range []struct {
		name    string
		nics    []N.NIC
		group   netip.Addr
		named   []string
		receive bool
		expect  []multicastInterface
	}{
		{
			name:   "all capable interfaces",
			group:  group4,
			expect: []multicastInterface{eth0, {}},
		},
		{
			name:   "named interface",
			group:  group6,
			named:  []string{"wlan0"},
			expect: []multicastInterface{{Name: "wlan0", Index: 3, Addr: netip.MustParseAddr("2001:db8::2")}},
		},
		{
			name:   "named address",
			group:  group4,
			named:  []string{"192.168.1.10"},
			expect: []multicastInterface{eth0},
		},
		{
			name:   "family mismatch drops hint",
			group:  group6,
			named:  []string{"192.168.1.10"},
			expect: []multicastInterface{{}},
		},
		{
			name:   "unknown interface",
			group:  group4,
			named:  []string{"nope0", "nope1"},
			expect: []multicastInterface{{}},
		},
		{
			name:    "receive nic",
			nics:    []N.NIC{{Name: "eth0", ReceiveMulticast: true}, {Name: "wlan0", SendMulticast: true}},
			group:   group4,
			receive: true,
			expect:  []multicastInterface{eth0},
		},
		{
			name:   "send nic",
			nics:   []N.NIC{{Name: "eth0", ReceiveMulticast: true}, {Name: "wlan0", SendMulticast: true}},
			group:  group6,
			expect: []multicastInterface{{Name: "wlan0", Index: 3, Addr: netip.MustParseAddr("2001:db8::2")}},
		},
		{
			name:   "nic address",
			nics:   []N.NIC{{Address: netip.MustParseAddr("192.168.1.10"), SendMulticast: true}},
			group:  group4,
			expect: []multicastInterface{eth0},
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			ctx := N.NewContext(
				N.WithLogger(log.Discard()),
				N.WithInterfaceFinder(testFinder()),
				N.WithNICs(testCase.nics...),
			)
			selected := selectInterfaces(ctx, ctx.Logger, testCase.group, testCase.named, testCase.receive)
			assert.Equal(t, testCase.expect, selected)
		})
	}
}

func TestMulticastInterfaceString(t *testing.T) {
	assert.Equal(t, "default", multicastInterface{}.String())
	assert.Equal(t, "eth0", multicastInterface{Name: "eth0", Index: 2}.String())
	assert.Equal(t, "10.0.0.1", multicastInterface{Addr: netip.MustParseAddr("10.0.0.1")}.String())
	assert.Equal(t, "index 999", multicastInterface{Index: 999}.String())
}
