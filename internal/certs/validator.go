package certs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
)

// ErrClientCertificateRejected indicates the presented client certificate
// did not chain to the configured trust root.
var ErrClientCertificateRejected = errors.New("client certificate rejected")

// ValidateClientCertificate reports whether the presented certificate chains
// to exactly the configured trust root. Revocation is not checked (the
// benchmark environment has no CRL/OCSP), the system trust store is not
// consulted, and no hostname or key-usage constraint is applied: permissive
// about revocation, strict about issuer. Returns false when either input is
// absent.
func ValidateClientCertificate(presented, trustRoot *x509.Certificate) bool {
	if presented == nil || trustRoot == nil {
		return false
	}

	roots := x509.NewCertPool()
	roots.AddCert(trustRoot)

	_, err := presented.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	return err == nil
}

// ServerTLSConfig builds the inbound TLS configuration for a listener:
// TLS 1.2/1.3 with the given server identity. When requireClientCert is set
// the handshake demands a client certificate and validates it against the
// trust root; otherwise a client certificate is merely accepted if offered.
// Rejections happen at the transport layer and never reach handlers.
func ServerTLSConfig(identity *Identity, trustRoot *x509.Certificate, requireClientCert bool) *tls.Config {
	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{identity.Certificate},
		NextProtos:   []string{"h2", "http/1.1"},
	}

	if requireClientCert {
		cfg.ClientAuth = tls.RequireAnyClientCert
		cfg.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return ErrClientCertificateRejected
			}
			presented, err := x509.ParseCertificate(rawCerts[0])
			if err != nil {
				return ErrClientCertificateRejected
			}
			if !ValidateClientCertificate(presented, trustRoot) {
				return ErrClientCertificateRejected
			}
			return nil
		}
	} else {
		cfg.ClientAuth = tls.RequestClientCert
	}

	return cfg
}
