// Package tls layers TLS sessions over another stream interface, keeping the
// non-blocking contract of the carrier.
package tls

import (
	cTLS "crypto/tls"
	"crypto/x509"
	"net/netip"
	"sync"
	"time"

	E "github.com/sagernet/sing-stream/common/exceptions"
	M "github.com/sagernet/sing-stream/common/metadata"
	N "github.com/sagernet/sing-stream/common/network"
	"github.com/sagernet/sing-stream/transport/socket"

	utls "github.com/refraction-networking/utls"
	"github.com/sirupsen/logrus"
)

const DefaultPort = 6369

type Options struct {
	// Carrier defaults to the socket interface.
	Carrier      N.Interface
	Certificates CertificateProvider
	// ServerName overrides the endpoint host for SNI and verification.
	ServerName string
	// Insecure skips peer verification. Verification is also skipped when no trusted
	// chain is provisioned.
	Insecure bool
	// Engine is EngineStd or EngineUTLS.
	Engine      string
	Fingerprint string
	// Hosts are written into a generated server certificate.
	Hosts []string
}

var _ N.Interface = (*Interface)(nil)

type Interface struct {
	options           Options
	carrier           N.Interface
	roots             *x509.CertPool
	fingerprint       utls.ClientHelloID
	serverCertificate func() (cTLS.Certificate, error)
}

func NewInterface(options Options) (*Interface, error) {
	iface := &Interface{
		options: options,
		carrier: options.Carrier,
	}
	if iface.carrier == nil {
		iface.carrier = socket.Interface
	}
	switch options.Engine {
	case "", EngineStd:
	case EngineUTLS:
		fingerprint, err := parseFingerprint(options.Fingerprint)
		if err != nil {
			return nil, err
		}
		iface.fingerprint = fingerprint
	default:
		return nil, E.New("unknown TLS engine: ", options.Engine)
	}
	roots, err := loadTrustedChain(options.Certificates)
	if err != nil {
		return nil, E.Cause(err, "load trusted chain")
	}
	iface.roots = roots
	hosts := options.Hosts
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1", "::1"}
	}
	iface.serverCertificate = sync.OnceValues(func() (cTLS.Certificate, error) {
		return loadServerCertificate(options.Certificates, hosts)
	})
	return iface, nil
}

func (i *Interface) Name() string {
	return "tls"
}

func (i *Interface) Flags() N.InterfaceFlags {
	return N.InterfaceSecure
}

// Open connects a client session, running the first handshake step, or opens a
// listener whose Accept returns server sessions.
func (i *Interface) Open(ctx *N.Context, spec string, flags N.Flags) (N.Stream, error) {
	if ctx == nil {
		return nil, N.ErrNotInitialized
	}
	if flags.Has(N.FlagMulticast) {
		return nil, E.Cause(N.ErrNotSupported, "TLS over multicast")
	}
	spec = M.EmbedDefaultPort(spec, DefaultPort)
	endpoint, err := M.ParseEndpoint(spec, DefaultPort)
	if err != nil {
		return nil, E.Extend(N.ErrAddressInvalid, err, "open ", spec)
	}
	if flags.Has(N.FlagListen) {
		_, err = i.serverCertificate()
		if err != nil {
			return nil, err
		}
	}
	carrier, err := i.carrier.Open(ctx, spec, flags)
	if err != nil {
		return nil, err
	}
	if flags.Has(N.FlagListen) {
		l := &Listener{ctx: ctx, iface: i, local: endpoint.String(), carrier: carrier}
		l.Init(i)
		return l, nil
	}
	serverName := i.options.ServerName
	if serverName == "" {
		serverName = endpoint.Host
	}
	if serverName == "" && endpoint.Addr.IsValid() {
		serverName = endpoint.Addr.String()
	}
	if serverName == "" {
		serverName = "127.0.0.1"
		if endpoint.IPv6 {
			serverName = "::1"
		}
	}
	logger := ctx.NewLogger("tls").WithField("endpoint", endpoint.String())
	b := newBridge(bridgeAddr("local"), bridgeAddr(endpoint.String()))
	conn := newClientConn(i.options.Engine, i.fingerprint, b, serverName, i.verifier(logger, serverName))
	session := newSession(i, logger, carrier, b, conn)
	err = session.handshake()
	if err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

func (i *Interface) verifier(logger logrus.FieldLogger, serverName string) verifyFunc {
	if i.options.Insecure || i.roots == nil {
		return nil
	}
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		return verifyChain(rawCerts, i.roots, serverName, logger)
	}
}

// Select waits on the carriers. A session already holding decrypted bytes, or a
// failed one, is reported without waiting.
func (i *Interface) Select(streams []N.Stream, waker N.Waker, timeout time.Duration) (N.SelectResult, error) {
	carriers := make([]N.Stream, len(streams))
	for index, stream := range streams {
		if stream == nil {
			continue
		}
		switch it := stream.(type) {
		case *Session:
			if err := it.Check(); err != nil {
				return N.SelectResult{Index: N.SelectIndexNone}, err
			}
			if event, ready := it.ready(); ready {
				return N.SelectResult{Index: index, Event: event}, nil
			}
			carriers[index] = it.carrier
		case *Listener:
			if err := it.Check(); err != nil {
				return N.SelectResult{Index: N.SelectIndexNone}, err
			}
			carriers[index] = it.carrier
		default:
			return N.SelectResult{Index: N.SelectIndexNone}, E.Cause(N.ErrNotSupported, "select over foreign stream")
		}
	}
	return i.carrier.Select(carriers, waker, timeout)
}

var _ N.Stream = (*Listener)(nil)

// Listener accepts carrier connections and wraps each in a server session.
type Listener struct {
	N.Header
	N.UnsupportedStream
	ctx     *N.Context
	iface   *Interface
	local   string
	carrier N.Stream
}

func (l *Listener) Carrier() N.Stream {
	return l.carrier
}

func (l *Listener) Read(p []byte) (int, error) {
	if err := l.Check(); err != nil {
		return 0, err
	}
	return 0, E.Cause(N.ErrNotSupported, "read from listener")
}

func (l *Listener) Write(p []byte) (int, error) {
	if err := l.Check(); err != nil {
		return 0, err
	}
	return 0, E.Cause(N.ErrNotSupported, "write to listener")
}

func (l *Listener) Accept(flags N.Flags) (N.Stream, netip.AddrPort, error) {
	if err := l.Check(); err != nil {
		return nil, netip.AddrPort{}, err
	}
	carrier, remote, err := l.carrier.Accept(flags)
	if err != nil {
		return nil, netip.AddrPort{}, err
	}
	certificate, err := l.iface.serverCertificate()
	if err != nil {
		carrier.Close()
		return nil, netip.AddrPort{}, err
	}
	b := newBridge(bridgeAddr(l.local), bridgeAddr(remote.String()))
	logger := l.ctx.NewLogger("tls").WithField("remote", remote.String())
	session := newSession(l.iface, logger, carrier, b, newServerConn(b, certificate))
	err = session.handshake()
	if err != nil {
		session.Close()
		return nil, remote, err
	}
	return session, remote, nil
}

func (l *Listener) Close() error {
	if err := l.Check(); err != nil {
		return err
	}
	l.Release()
	return l.carrier.Close()
}
