// Package bootstrap_test verifies that startup refuses to proceed when the
// active profile requires certificate material that is not on disk.
package bootstrap_test

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

	"github.com/nemanja87/master-thesis-bench-runner/internal/bootstrap"
	"github.com/nemanja87/master-thesis-bench-runner/internal/config"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
	bencherrors "github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

// writeTestCA writes a self-signed CA certificate and returns its path plus
// the key for issuing leaves.
func writeTestCA(t *testing.T, dir string) (string, *x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Bench Root"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	path := filepath.Join(dir, "ca.crt.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path, cert, key
}

// writeTestClientPair writes a CA-signed client certificate and key pair.
func writeTestClientPair(t *testing.T, dir string, ca *x509.Certificate, caKey *rsa.PrivateKey) (string, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "bench-client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca, &key.PublicKey, caKey)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "client.crt.pem")
	certData := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(certPath, certData, 0o600))

	keyPath := filepath.Join(dir, "client.key.pem")
	keyData := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(keyPath, keyData, 0o600))

	return certPath, keyPath
}

func TestLoadMaterialPlaintextAllOptional(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Profile: secprofile.S0}
	cfg.TLS.ServerCertPath = filepath.Join(dir, "absent.pfx")
	cfg.TLS.CACertPath = filepath.Join(dir, "absent-ca.pem")

	m, err := bootstrap.LoadMaterial(cfg)
	require.NoError(t, err)
	assert.Nil(t, m.ServerIdentity)
	assert.Nil(t, m.TrustRoot)
	assert.Nil(t, m.ClientIdentity)
}

func TestLoadMaterialMissingTrustRootFatal(t *testing.T) {
	// A missing CA must refuse startup under every secured profile, not
	// degrade into per-request handshake or JWKS failures.
	for _, p := range []secprofile.Profile{secprofile.S1, secprofile.S2, secprofile.S3, secprofile.S4} {
		t.Run(p.String(), func(t *testing.T) {
			caPath := filepath.Join(t.TempDir(), "absent-ca.pem")
			cfg := &config.Config{Profile: p}
			cfg.TLS.CACertPath = caPath

			_, err := bootstrap.LoadMaterial(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, bencherrors.ErrCertificateMissing)
			assert.Contains(t, err.Error(), caPath)
		})
	}
}

func TestLoadMaterialMissingClientIdentityFatal(t *testing.T) {
	dir := t.TempDir()
	caPath, _, _ := writeTestCA(t, dir)

	for _, p := range []secprofile.Profile{secprofile.S2, secprofile.S3, secprofile.S4} {
		t.Run(p.String(), func(t *testing.T) {
			clientPath := filepath.Join(dir, "absent-client.pem")
			cfg := &config.Config{Profile: p}
			cfg.TLS.CACertPath = caPath
			cfg.TLS.ClientCertPath = clientPath

			_, err := bootstrap.LoadMaterial(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, bencherrors.ErrCertificateMissing)
			assert.Contains(t, err.Error(), clientPath)
		})
	}
}

func TestLoadMaterialClientIdentityOptionalUnderTLSOnly(t *testing.T) {
	dir := t.TempDir()
	caPath, _, _ := writeTestCA(t, dir)
	serverPath := filepath.Join(dir, "absent-server.pfx")

	cfg := &config.Config{Profile: secprofile.S1}
	cfg.TLS.CACertPath = caPath
	cfg.TLS.ServerCertPath = serverPath

	// S1 passes the trust root and client identity checks and fails only on
	// the server certificate every TLS listener needs.
	_, err := bootstrap.LoadMaterial(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, bencherrors.ErrCertificateMissing)
	assert.Contains(t, err.Error(), serverPath)
}

func TestLoadMaterialLoadsPresentOptionalMaterial(t *testing.T) {
	dir := t.TempDir()
	caPath, ca, caKey := writeTestCA(t, dir)
	clientPath, clientKeyPath := writeTestClientPair(t, dir, ca, caKey)

	cfg := &config.Config{Profile: secprofile.S0}
	cfg.TLS.CACertPath = caPath
	cfg.TLS.ClientCertPath = clientPath
	cfg.TLS.ClientCertKeyPath = clientKeyPath

	m, err := bootstrap.LoadMaterial(cfg)
	require.NoError(t, err)
	require.NotNil(t, m.TrustRoot)
	require.NotNil(t, m.ClientIdentity)
	assert.True(t, m.ClientIdentity.HasPrivateKey())
	assert.Nil(t, m.ServerIdentity)
}
