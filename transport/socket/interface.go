// Package socket is the plain TCP and UDP multicast backend of the stream interface,
// built directly on non-blocking host sockets.
package socket

import (
	N "github.com/sagernet/sing-stream/common/network"
)

const (
	DefaultPort = 6368

	listenBacklog = 32
	drainLimit    = 64
)

// Interface is the socket backend operation table.
var Interface N.Interface = (*socketInterface)(nil)

type socketInterface struct{}

func (*socketInterface) Name() string {
	return "socket"
}

func (*socketInterface) Flags() N.InterfaceFlags {
	return 0
}
