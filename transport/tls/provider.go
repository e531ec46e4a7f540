package tls

import (
	cTLS "crypto/tls"
	"crypto/x509"
	"os"

	E "github.com/sagernet/sing-stream/common/exceptions"
)

// Slot names one piece of certificate material.
type Slot uint8

const (
	SlotServerCertificate Slot = iota
	SlotServerKey
	SlotTrustedChain
)

func (s Slot) String() string {
	switch s {
	case SlotServerCertificate:
		return "server certificate"
	case SlotServerKey:
		return "server key"
	case SlotTrustedChain:
		return "trusted chain"
	default:
		return "unknown slot"
	}
}

// CertificateProvider returns PEM material by slot. An empty result means the slot is
// not provisioned.
type CertificateProvider interface {
	Load(slot Slot) ([]byte, error)
}

type MemoryProvider map[Slot][]byte

func (p MemoryProvider) Load(slot Slot) ([]byte, error) {
	return p[slot], nil
}

// FileProvider reads each slot from a PEM file; empty paths are unprovisioned.
type FileProvider struct {
	ServerCertificate string
	ServerKey         string
	TrustedChain      string
}

func (p FileProvider) Load(slot Slot) ([]byte, error) {
	var path string
	switch slot {
	case SlotServerCertificate:
		path = p.ServerCertificate
	case SlotServerKey:
		path = p.ServerKey
	case SlotTrustedChain:
		path = p.TrustedChain
	}
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, E.Cause(err, "read ", slot)
	}
	return content, nil
}

func loadTrustedChain(provider CertificateProvider) (*x509.CertPool, error) {
	if provider == nil {
		return nil, nil
	}
	content, err := provider.Load(SlotTrustedChain)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, nil
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(content) {
		return nil, E.New("no certificates in trusted chain")
	}
	return pool, nil
}

// loadServerCertificate returns the provisioned key pair, or a generated self-signed
// one for hosts when none is provisioned.
func loadServerCertificate(provider CertificateProvider, hosts []string) (cTLS.Certificate, error) {
	var certificatePEM, keyPEM []byte
	if provider != nil {
		var err error
		certificatePEM, err = provider.Load(SlotServerCertificate)
		if err != nil {
			return cTLS.Certificate{}, err
		}
		keyPEM, err = provider.Load(SlotServerKey)
		if err != nil {
			return cTLS.Certificate{}, err
		}
	}
	if len(certificatePEM) == 0 {
		certificate, err := GenerateCertificate(hosts...)
		if err != nil {
			return cTLS.Certificate{}, E.Cause(err, "generate server certificate")
		}
		return *certificate, nil
	}
	if len(keyPEM) == 0 {
		return cTLS.Certificate{}, E.New("missing server key")
	}
	certificate, err := cTLS.X509KeyPair(certificatePEM, keyPEM)
	if err != nil {
		return cTLS.Certificate{}, E.Cause(err, "load server key pair")
	}
	return certificate, nil
}
