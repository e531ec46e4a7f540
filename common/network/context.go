package network

import (
	"net/netip"

	"github.com/sagernet/sing-stream/common/control"
	"github.com/sagernet/sing-stream/common/log"

	"github.com/sirupsen/logrus"
)

// NIC describes one configured network interface.
type NIC struct {
	Name             string     `json:"name,omitempty"`
	Address          netip.Addr `json:"address,omitempty"`
	SendMulticast    bool       `json:"send_multicast,omitempty"`
	ReceiveMulticast bool       `json:"receive_multicast,omitempty"`
}

// Context is the transport state shared by every Open. It must be built before the
// first stream is opened and outlive every stream opened with it.
type Context struct {
	Logger          logrus.FieldLogger
	NICs            []NIC
	NoDelay         bool
	InterfaceFinder control.InterfaceFinder
}

type ContextOption func(ctx *Context)

func WithLogger(logger logrus.FieldLogger) ContextOption {
	return func(ctx *Context) {
		ctx.Logger = logger
	}
}

func WithNICs(nics ...NIC) ContextOption {
	return func(ctx *Context) {
		ctx.NICs = append(ctx.NICs, nics...)
	}
}

func WithNoDelay(noDelay bool) ContextOption {
	return func(ctx *Context) {
		ctx.NoDelay = noDelay
	}
}

func WithInterfaceFinder(finder control.InterfaceFinder) ContextOption {
	return func(ctx *Context) {
		ctx.InterfaceFinder = finder
	}
}

func NewContext(options ...ContextOption) *Context {
	ctx := new(Context)
	for _, option := range options {
		option(ctx)
	}
	if ctx.Logger == nil {
		ctx.Logger = log.NewLogger("stream")
	}
	if ctx.InterfaceFinder == nil {
		ctx.InterfaceFinder = control.NewInterfaceFinder()
	}
	return ctx
}

// NewLogger returns a logger tagged for one stream, carrying a fresh span id.
func (c *Context) NewLogger(tag string) logrus.FieldLogger {
	return c.Logger.WithFields(logrus.Fields{
		"tag":         tag,
		log.FieldSpan: log.NewSpanID(),
	})
}

// MulticastNICs returns the configured interfaces flagged for sending, or for
// receiving when receive is set.
func (c *Context) MulticastNICs(receive bool) []NIC {
	var nics []NIC
	for _, nic := range c.NICs {
		if receive && nic.ReceiveMulticast || !receive && nic.SendMulticast {
			nics = append(nics, nic)
		}
	}
	return nics
}

// ResolveFlags replaces the per stream options with the context's settings when
// FlagUseGlobalSettings is present.
func (c *Context) ResolveFlags(flags Flags) Flags {
	if flags&FlagUseGlobalSettings == 0 {
		return flags
	}
	flags &^= FlagUseGlobalSettings | FlagNoDelay
	if c.NoDelay {
		flags |= FlagNoDelay
	}
	return flags
}
