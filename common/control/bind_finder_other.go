//go:build !linux

package control

func NewInterfaceFinder() InterfaceFinder {
	return NewDefaultInterfaceFinder()
}
