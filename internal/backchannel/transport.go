// Package backchannel constructs the outbound HTTP transports the services
// use for service-to-service calls: JWKS and token fetches, the gateway's
// cluster forwarding, and the bench runner's workload traffic. Transports
// are HTTP/2 capable, restricted to TLS 1.2/1.3, and never check revocation.
package backchannel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
)

// ClientTLSConfig builds the TLS configuration for outbound connections.
// With a trust root, the server certificate is accepted when it either
// passes default verification or chains to the configured root, mirroring
// the chain logic used for client-certificate validation. Hostname matching
// is not part of this contract. A client identity, when given, is presented
// during outbound mTLS handshakes.
func ClientTLSConfig(trustRoot *x509.Certificate, clientIdentity *certs.Identity) *tls.Config {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}

	if trustRoot != nil {
		// Verification happens in the callback so the custom root can be
		// consulted after default verification fails.
		cfg.InsecureSkipVerify = true
		cfg.VerifyPeerCertificate = verifyAgainstRoot(trustRoot)
	}

	if clientIdentity.HasPrivateKey() {
		cfg.Certificates = []tls.Certificate{clientIdentity.Certificate}
	}

	return cfg
}

func verifyAgainstRoot(trustRoot *x509.Certificate) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return certs.ErrClientCertificateRejected
		}

		peer, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return certs.ErrClientCertificateRejected
		}

		intermediates := x509.NewCertPool()
		for _, raw := range rawCerts[1:] {
			if cert, err := x509.ParseCertificate(raw); err == nil {
				intermediates.AddCert(cert)
			}
		}

		// Default-valid chain against the system store.
		if _, err := peer.Verify(x509.VerifyOptions{Intermediates: intermediates}); err == nil {
			return nil
		}

		if certs.ValidateClientCertificate(peer, trustRoot) {
			return nil
		}
		return certs.ErrClientCertificateRejected
	}
}

// NewTransport creates an HTTP/2-capable transport with custom server trust
// and an optional client identity for mTLS backchannel calls. Callers own
// CloseIdleConnections on shutdown.
func NewTransport(trustRoot *x509.Certificate, clientIdentity *certs.Identity) *http.Transport {
	return &http.Transport{
		TLSClientConfig:       ClientTLSConfig(trustRoot, clientIdentity),
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// NewInsecureTransport creates a transport that accepts any server
// certificate. The gateway's REST clusters use it under TLS-only profiles,
// a benchmark-environment simplification.
func NewInsecureTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true,
		},
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewHTTP2Transport creates a transport that speaks exactly HTTP/2, for the
// gRPC cluster. With a nil tlsConfig the connection is h2c (prior-knowledge
// cleartext HTTP/2); otherwise h2 over the given TLS configuration.
func NewHTTP2Transport(tlsConfig *tls.Config) *http2.Transport {
	if tlsConfig == nil {
		return &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	}

	cfg := tlsConfig.Clone()
	cfg.NextProtos = []string{"h2"}
	return &http2.Transport{TLSClientConfig: cfg}
}
