package network

import (
	"net/netip"
	"time"

	E "github.com/sagernet/sing-stream/common/exceptions"
)

// Stream is one open connection, listener or multicast endpoint.
//
// Every method is non-blocking: Read and Write report (0, nil) when nothing can be
// transferred now, and the caller waits with Select before retrying. A Stream is owned
// by one goroutine at a time.
type Stream interface {
	// Interface returns the backend the stream was opened with, or nil after Close.
	Interface() Interface
	Close() error
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	// Flush pushes coalesced bytes to the network. It must be called after every
	// write burst and whenever Select returns.
	Flush() error
	Accept(flags Flags) (Stream, netip.AddrPort, error)
	SendPacket(p []byte) (n int, err error)
	ReceivePacket(p []byte) (n int, source netip.AddrPort, err error)
}

// BufferedStream is implemented by streams holding written bytes not yet handed to the
// host stack.
type BufferedStream interface {
	Buffered() int
}

type InterfaceFlags uint32

const (
	InterfaceSecure InterfaceFlags = 1 << iota
)

// Interface is the immutable operation table of one backend kind.
type Interface interface {
	Name() string
	Flags() InterfaceFlags
	Open(ctx *Context, endpoint string, flags Flags) (Stream, error)
	// Select waits until one of streams is ready, waker is signaled or timeout
	// elapses. A zero timeout waits indefinitely.
	Select(streams []Stream, waker Waker, timeout time.Duration) (SelectResult, error)
}

func IsSecure(iface Interface) bool {
	return iface != nil && iface.Flags()&InterfaceSecure != 0
}

// Header is embedded first in every backend state. It records the owning interface
// and is cleared on close, so use after close is detected instead of undefined.
type Header struct {
	iface Interface
}

func (h *Header) Init(iface Interface) {
	h.iface = iface
}

func (h *Header) Interface() Interface {
	return h.iface
}

func (h *Header) Release() {
	h.iface = nil
}

func (h *Header) Check() error {
	if h.iface == nil {
		return ErrClosed
	}
	return nil
}

// UnsupportedStream supplies the fallback for operations a backend does not implement.
type UnsupportedStream struct{}

func (UnsupportedStream) Flush() error {
	return nil
}

func (UnsupportedStream) Accept(flags Flags) (Stream, netip.AddrPort, error) {
	return nil, netip.AddrPort{}, E.Cause(ErrNotSupported, "accept")
}

func (UnsupportedStream) SendPacket(p []byte) (int, error) {
	return 0, E.Cause(ErrNotSupported, "send packet")
}

func (UnsupportedStream) ReceivePacket(p []byte) (int, netip.AddrPort, error) {
	return 0, netip.AddrPort{}, E.Cause(ErrNotSupported, "receive packet")
}

// UnsupportedSelect is the fallback for interfaces without a multiplexer.
type UnsupportedSelect struct{}

func (UnsupportedSelect) Select(streams []Stream, waker Waker, timeout time.Duration) (SelectResult, error) {
	return SelectResult{Index: SelectIndexNone}, E.Cause(ErrNotSupported, "select")
}

func Open(ctx *Context, iface Interface, endpoint string, flags Flags) (Stream, error) {
	if ctx == nil {
		return nil, ErrNotInitialized
	}
	if iface == nil {
		return nil, E.Cause(ErrNotSupported, "open ", endpoint, ": missing interface")
	}
	return iface.Open(ctx, endpoint, ctx.ResolveFlags(flags))
}

// Select dispatches to the interface shared by every non-nil stream.
func Select(streams []Stream, waker Waker, timeout time.Duration) (SelectResult, error) {
	var iface Interface
	for _, stream := range streams {
		if stream == nil {
			continue
		}
		streamIface := stream.Interface()
		if streamIface == nil {
			return SelectResult{Index: SelectIndexNone}, E.Cause(ErrClosed, "select")
		}
		if iface == nil {
			iface = streamIface
		} else if iface != streamIface {
			return SelectResult{Index: SelectIndexNone}, E.Cause(ErrNotSupported, "select over mixed interfaces")
		}
	}
	if iface == nil {
		return SelectResult{Index: SelectIndexNone}, E.Cause(ErrNotSupported, "select without streams")
	}
	return iface.Select(streams, waker, timeout)
}
