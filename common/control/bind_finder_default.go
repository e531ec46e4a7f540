package control

import (
	"net"
	"net/netip"
	"sync"

	E "github.com/sagernet/sing-stream/common/exceptions"
)

var _ InterfaceFinder = (*DefaultInterfaceFinder)(nil)

// DefaultInterfaceFinder caches the interface list of a source, refreshing it on
// Update and on lookup misses.
type DefaultInterfaceFinder struct {
	access     sync.RWMutex
	interfaces []Interface
	source     func() ([]Interface, error)
}

func NewDefaultInterfaceFinder() *DefaultInterfaceFinder {
	return &DefaultInterfaceFinder{source: netInterfaces}
}

// NewStaticInterfaceFinder serves a fixed interface list.
func NewStaticInterfaceFinder(interfaces []Interface) *DefaultInterfaceFinder {
	return &DefaultInterfaceFinder{
		interfaces: interfaces,
		source: func() ([]Interface, error) {
			return interfaces, nil
		},
	}
}

func (f *DefaultInterfaceFinder) Update() error {
	interfaces, err := f.source()
	if err != nil {
		return err
	}
	f.UpdateInterfaces(interfaces)
	return nil
}

func (f *DefaultInterfaceFinder) UpdateInterfaces(interfaces []Interface) {
	f.access.Lock()
	defer f.access.Unlock()
	f.interfaces = interfaces
}

func (f *DefaultInterfaceFinder) Interfaces() []Interface {
	f.access.RLock()
	defer f.access.RUnlock()
	return append([]Interface(nil), f.interfaces...)
}

func (f *DefaultInterfaceFinder) ByName(name string) (*Interface, error) {
	iif, loaded, err := lookup(f, func(interfaces []Interface) *Interface {
		return findByName(interfaces, name)
	})
	if err != nil {
		return nil, err
	}
	if !loaded {
		return nil, E.New("interface not found: ", name)
	}
	return iif, nil
}

func (f *DefaultInterfaceFinder) ByIndex(index int) (*Interface, error) {
	iif, loaded, err := lookup(f, func(interfaces []Interface) *Interface {
		return findByIndex(interfaces, index)
	})
	if err != nil {
		return nil, err
	}
	if !loaded {
		return nil, E.New("interface not found: index ", index)
	}
	return iif, nil
}

func (f *DefaultInterfaceFinder) ByAddr(addr netip.Addr) (*Interface, error) {
	iif, loaded, err := lookup(f, func(interfaces []Interface) *Interface {
		return findByAddr(interfaces, addr)
	})
	if err != nil {
		return nil, err
	}
	if !loaded {
		return nil, &net.OpError{Op: "route", Net: "ip+net", Addr: &net.IPAddr{IP: addr.AsSlice()}, Err: E.New("no such network interface")}
	}
	return iif, nil
}

func netInterfaces() ([]Interface, error) {
	netIfs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	interfaces := make([]Interface, 0, len(netIfs))
	for _, netIf := range netIfs {
		iif, err := InterfaceFromNet(netIf)
		if err != nil {
			return nil, E.Cause(err, "list addresses of ", netIf.Name)
		}
		interfaces = append(interfaces, iif)
	}
	return interfaces, nil
}
