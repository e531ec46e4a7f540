package tls

import (
	crand "crypto/rand"
	"crypto/rsa"
	cTLS "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"math/rand"
	"net/netip"
	"time"

	"github.com/sagernet/sing-stream/common/random"
)

// GenerateKeyPair creates a PEM encoded self-signed server certificate valid for hosts.
// The validity starts at a random point of the last days and lasts half a year.
func GenerateKeyPair(hosts ...string) (certificatePEM []byte, keyPEM []byte, err error) {
	source := random.NewSource()
	r := rand.New(source)
	notBefore := time.Now().AddDate(0, 0, -r.Intn(7)-1)
	notBefore = notBefore.Add(-(time.Duration(r.Intn(24)) * time.Hour))
	notBefore = notBefore.Add(-(time.Duration(r.Intn(3600)) * time.Second))
	return generateKeyPair(source, notBefore, notBefore.AddDate(0, 6, 0), hosts)
}

func GenerateCertificate(hosts ...string) (*cTLS.Certificate, error) {
	certificatePEM, keyPEM, err := GenerateKeyPair(hosts...)
	if err != nil {
		return nil, err
	}
	certificate, err := cTLS.X509KeyPair(certificatePEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &certificate, nil
}

func generateKeyPair(rng io.Reader, notBefore time.Time, notAfter time.Time, hosts []string) ([]byte, []byte, error) {
	privateKey, err := rsa.GenerateKey(rng, 2048)
	if err != nil {
		return nil, nil, err
	}
	serialNumber, err := crand.Int(rng, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, err
	}
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"sing-stream"},
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,

		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, host := range hosts {
		if addr, err := netip.ParseAddr(host); err == nil {
			template.IPAddresses = append(template.IPAddresses, addr.AsSlice())
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}
	if len(hosts) > 0 {
		template.Subject.CommonName = hosts[0]
	}
	certificateDER, err := x509.CreateCertificate(rng, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, nil, err
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certificateDER}),
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), nil
}
