//go:build !unix

package socket

import (
	"time"

	E "github.com/sagernet/sing-stream/common/exceptions"
	N "github.com/sagernet/sing-stream/common/network"
)

func (*socketInterface) Open(ctx *N.Context, endpoint string, flags N.Flags) (N.Stream, error) {
	return nil, E.Cause(N.ErrNotSupported, "socket transport not supported on this platform")
}

func (*socketInterface) Select(streams []N.Stream, waker N.Waker, timeout time.Duration) (N.SelectResult, error) {
	return N.SelectResult{Index: N.SelectIndexNone}, E.Cause(N.ErrNotSupported, "socket transport not supported on this platform")
}

type Waker struct{}

func NewWaker() (*Waker, error) {
	return nil, E.Cause(N.ErrNotSupported, "waker not supported on this platform")
}

func (*Waker) Wake() error {
	return N.ErrNotSupported
}

func (*Waker) Close() error {
	return nil
}
