// Package certs loads the X.509 identities used by the bench services: the
// listener's server certificate, the single CA trust root, and the client
// certificate presented on outbound mTLS. Material is read from the
// filesystem once at startup and is immutable afterwards, so it is safe for
// unsynchronized concurrent reads.
package certs

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"

	bencherrors "github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

// Identity is a loaded certificate plus, when available, its private key in
// the representation TLS stacks expect.
type Identity struct {
	Certificate tls.Certificate
	Leaf        *x509.Certificate
}

// HasPrivateKey reports whether the identity can be presented in a TLS
// handshake.
func (i *Identity) HasPrivateKey() bool {
	return i != nil && i.Certificate.PrivateKey != nil
}

// Fingerprint returns the SHA-256 fingerprint of the leaf certificate as a
// lowercase hex string.
func (i *Identity) Fingerprint() string {
	if i == nil || i.Leaf == nil {
		return ""
	}
	sum := sha256.Sum256(i.Leaf.Raw)
	return hex.EncodeToString(sum[:])
}

// LoadPKCS12Identity loads a certificate and private key from a PKCS#12
// bundle. If optional is true a missing file (or empty path) yields
// (nil, nil); otherwise it fails with a not-found kind. A cryptographic
// failure always propagates, never silently swallowed.
func LoadPKCS12Identity(path, password string, optional bool) (*Identity, error) {
	if path == "" {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("certificate path must be provided: %w", bencherrors.ErrInvalidInput)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if optional {
				return nil, nil
			}
			return nil, fmt.Errorf("certificate not found at '%s': %w", path, bencherrors.ErrCertificateMissing)
		}
		return nil, fmt.Errorf("read certificate '%s': %w", path, err)
	}

	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("decode PKCS#12 bundle '%s': %w", path, err)
	}

	return &Identity{
		Certificate: tls.Certificate{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  key,
			Leaf:        cert,
		},
		Leaf: cert,
	}, nil
}

// LoadPEMIdentity loads a certificate from PEM text, combined with a private
// key when keyPath is non-empty and exists. The optionality rule matches
// LoadPKCS12Identity for missing files; additionally a cryptographic failure
// is swallowed into (nil, nil) when optional, since callers treat a broken
// optional client certificate the same as an absent one.
func LoadPEMIdentity(certPath, keyPath string, optional bool) (*Identity, error) {
	if certPath == "" {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("certificate path must be provided: %w", bencherrors.ErrInvalidInput)
	}

	if _, err := os.Stat(certPath); err != nil {
		if os.IsNotExist(err) {
			if optional {
				return nil, nil
			}
			return nil, fmt.Errorf("certificate not found at '%s': %w", certPath, bencherrors.ErrCertificateMissing)
		}
		return nil, fmt.Errorf("stat certificate '%s': %w", certPath, err)
	}

	identity, err := loadPEM(certPath, keyPath)
	if err != nil {
		if optional {
			return nil, nil
		}
		return nil, err
	}
	return identity, nil
}

func loadPEM(certPath, keyPath string) (*Identity, error) {
	if keyPath != "" {
		if _, err := os.Stat(keyPath); err == nil {
			pair, err := tls.LoadX509KeyPair(certPath, keyPath)
			if err != nil {
				return nil, fmt.Errorf("load key pair '%s': %w", certPath, err)
			}
			leaf, err := x509.ParseCertificate(pair.Certificate[0])
			if err != nil {
				return nil, fmt.Errorf("parse certificate '%s': %w", certPath, err)
			}
			pair.Leaf = leaf
			return &Identity{Certificate: pair, Leaf: leaf}, nil
		}
	}

	// Certificate-only load from the PEM text.
	data, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read certificate '%s': %w", certPath, err)
	}
	leaf, err := ParseCertificatePEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse certificate '%s': %w", certPath, err)
	}
	return &Identity{
		Certificate: tls.Certificate{Certificate: [][]byte{leaf.Raw}, Leaf: leaf},
		Leaf:        leaf,
	}, nil
}

// LoadTrustRoot loads the single CA certificate used as the custom trust
// root. Same optionality rule as the identity loaders.
func LoadTrustRoot(path string, optional bool) (*x509.Certificate, error) {
	identity, err := LoadPEMIdentity(path, "", optional)
	if err != nil || identity == nil {
		return nil, err
	}
	return identity.Leaf, nil
}

// ParseCertificatePEM parses the first CERTIFICATE block in PEM data.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("no certificate block in PEM data: %w", bencherrors.ErrCertificateInvalid)
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		return cert, nil
	}
}
