// Package certs_test verifies certificate loading and chain validation.
package certs_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
	bencherrors "github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

// generateCA creates a self-signed CA certificate for testing.
func generateCA(t *testing.T, cn string) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Bench Test CA"},
			CommonName:   cn,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return cert, key
}

// generateLeaf creates a certificate signed by the CA.
func generateLeaf(t *testing.T, ca *x509.Certificate, caKey *rsa.PrivateKey, cn string) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		DNSNames:     []string{"unrelated.example.com"},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca, &key.PublicKey, caKey)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return cert, key
}

func writeCertPEM(t *testing.T, dir, name string, cert *x509.Certificate) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeKeyPEM(t *testing.T, dir, name string, key *rsa.PrivateKey) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadPKCS12IdentityMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.pfx")

	identity, err := certs.LoadPKCS12Identity(missing, "", true)
	require.NoError(t, err)
	assert.Nil(t, identity)

	_, err = certs.LoadPKCS12Identity(missing, "", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, bencherrors.ErrCertificateMissing)
}

func TestLoadPKCS12IdentityGarbageAlwaysFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pfx")
	require.NoError(t, os.WriteFile(path, []byte("not a pkcs12 bundle"), 0o600))

	// Cryptographic failure propagates even when optional.
	_, err := certs.LoadPKCS12Identity(path, "", true)
	require.Error(t, err)
}

func TestLoadPEMIdentityRoundTrip(t *testing.T) {
	ca, caKey := generateCA(t, "Root")
	leaf, leafKey := generateLeaf(t, ca, caKey, "orderservice")

	dir := t.TempDir()
	certPath := writeCertPEM(t, dir, "leaf.pem", leaf)
	keyPath := writeKeyPEM(t, dir, "leaf.key", leafKey)

	identity, err := certs.LoadPEMIdentity(certPath, keyPath, false)
	require.NoError(t, err)
	require.NotNil(t, identity)

	assert.True(t, identity.HasPrivateKey())
	assert.Equal(t, leaf.Raw, identity.Leaf.Raw)

	sameLeaf := &certs.Identity{Leaf: leaf}
	assert.Equal(t, sameLeaf.Fingerprint(), identity.Fingerprint())
}

func TestLoadPEMIdentityCertificateOnly(t *testing.T) {
	ca, caKey := generateCA(t, "Root")
	leaf, _ := generateLeaf(t, ca, caKey, "gateway")

	certPath := writeCertPEM(t, t.TempDir(), "leaf.pem", leaf)

	identity, err := certs.LoadPEMIdentity(certPath, "", false)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.False(t, identity.HasPrivateKey())
	assert.Equal(t, "gateway", identity.Leaf.Subject.CommonName)
}

func TestLoadPEMIdentityMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.pem")

	identity, err := certs.LoadPEMIdentity(missing, "", true)
	require.NoError(t, err)
	assert.Nil(t, identity)

	_, err = certs.LoadPEMIdentity(missing, "", false)
	assert.ErrorIs(t, err, bencherrors.ErrCertificateMissing)
}

func TestLoadPEMIdentityBrokenSwallowedWhenOptional(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pem")
	require.NoError(t, os.WriteFile(path, []byte("-----BEGIN GARBAGE-----\nzz\n-----END GARBAGE-----\n"), 0o600))

	identity, err := certs.LoadPEMIdentity(path, "", true)
	require.NoError(t, err)
	assert.Nil(t, identity)

	_, err = certs.LoadPEMIdentity(path, "", false)
	require.Error(t, err)
}

func TestLoadTrustRoot(t *testing.T) {
	ca, _ := generateCA(t, "Root")
	path := writeCertPEM(t, t.TempDir(), "ca.pem", ca)

	root, err := certs.LoadTrustRoot(path, false)
	require.NoError(t, err)
	assert.Equal(t, ca.Raw, root.Raw)
}

func TestValidateClientCertificate(t *testing.T) {
	r1, r1Key := generateCA(t, "R1")
	r2, _ := generateCA(t, "R2")
	leaf, _ := generateLeaf(t, r1, r1Key, "bench-client")

	// Chains to the configured root, hostname/SAN irrelevant.
	assert.True(t, certs.ValidateClientCertificate(leaf, r1))

	// Issued by R1, validated against R2.
	assert.False(t, certs.ValidateClientCertificate(leaf, r2))

	// Absent inputs.
	assert.False(t, certs.ValidateClientCertificate(nil, r1))
	assert.False(t, certs.ValidateClientCertificate(leaf, nil))
}
