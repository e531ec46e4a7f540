package tls

import (
	"crypto/x509"
	"errors"

	E "github.com/sagernet/sing-stream/common/exceptions"
	N "github.com/sagernet/sing-stream/common/network"

	"github.com/sirupsen/logrus"
)

// verifyChain checks the peer chain against roots and serverName. A certificate
// outside its validity period is accepted by checking again at the middle of the
// leaf's validity.
func verifyChain(rawCerts [][]byte, roots *x509.CertPool, serverName string, logger logrus.FieldLogger) error {
	if len(rawCerts) == 0 {
		return E.Cause(N.ErrCertificateRejected, "peer sent no certificate")
	}
	certificates := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		certificate, err := x509.ParseCertificate(raw)
		if err != nil {
			return E.Extend(N.ErrCertificateRejected, err, "parse peer certificate")
		}
		certificates = append(certificates, certificate)
	}
	leaf := certificates[0]
	options := x509.VerifyOptions{
		Roots:         roots,
		DNSName:       serverName,
		Intermediates: x509.NewCertPool(),
	}
	for _, intermediate := range certificates[1:] {
		options.Intermediates.AddCert(intermediate)
	}
	_, err := leaf.Verify(options)
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &invalidErr) && invalidErr.Reason == x509.Expired {
		logger.WithField("not_after", leaf.NotAfter).Warn("peer certificate outside its validity period, ignoring expiry")
		options.CurrentTime = leaf.NotBefore.Add(leaf.NotAfter.Sub(leaf.NotBefore) / 2)
		_, err = leaf.Verify(options)
	}
	if err != nil {
		return E.Extend(N.ErrCertificateRejected, err, "verify peer certificate")
	}
	return nil
}
