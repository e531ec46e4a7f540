package tls

import (
	"context"
	cTLS "crypto/tls"
	"crypto/x509"
	"net"
	"strings"

	E "github.com/sagernet/sing-stream/common/exceptions"

	utls "github.com/refraction-networking/utls"
)

const (
	EngineStd  = "std"
	EngineUTLS = "utls"
)

// engineConn is the part of crypto/tls and utls connections a session drives.
type engineConn interface {
	HandshakeContext(ctx context.Context) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

var fingerprints = map[string]utls.ClientHelloID{
	"golang":     utls.HelloGolang,
	"chrome":     utls.HelloChrome_Auto,
	"firefox":    utls.HelloFirefox_Auto,
	"edge":       utls.HelloEdge_Auto,
	"safari":     utls.HelloSafari_Auto,
	"ios":        utls.HelloIOS_Auto,
	"randomized": utls.HelloRandomized,
}

func parseFingerprint(name string) (utls.ClientHelloID, error) {
	if name == "" {
		return utls.HelloChrome_Auto, nil
	}
	id, loaded := fingerprints[strings.ToLower(name)]
	if !loaded {
		return utls.ClientHelloID{}, E.New("unknown fingerprint: ", name)
	}
	return id, nil
}

type verifyFunc = func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error

// newClientConn builds the client engine. Chain verification is done by verify, so
// the engine itself accepts any certificate.
func newClientConn(engine string, fingerprint utls.ClientHelloID, conn net.Conn, serverName string, verify verifyFunc) engineConn {
	if engine == EngineUTLS {
		return utls.UClient(conn, &utls.Config{
			ServerName:            serverName,
			InsecureSkipVerify:    true,
			VerifyPeerCertificate: verify,
			MinVersion:            utls.VersionTLS12,
		}, fingerprint)
	}
	return cTLS.Client(conn, &cTLS.Config{
		ServerName:            serverName,
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verify,
		MinVersion:            cTLS.VersionTLS12,
	})
}

func newServerConn(conn net.Conn, certificate cTLS.Certificate) engineConn {
	return cTLS.Server(conn, &cTLS.Config{
		Certificates: []cTLS.Certificate{certificate},
		MinVersion:   cTLS.VersionTLS12,
	})
}
