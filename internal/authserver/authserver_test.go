package authserver_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/authserver"
	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
)

func signingIdentity(t *testing.T) *certs.Identity {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "authserver-signing"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &certs.Identity{
		Certificate: tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf},
		Leaf:        leaf,
	}
}

// newIssuerServer serves the issuer over httptest with the authority set to
// the listener's own URL, so issued tokens validate against the live JWKS.
func newIssuerServer(t *testing.T, profile secprofile.Profile) *httptest.Server {
	t.Helper()

	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	s, err := authserver.New(authserver.Options{
		Authority:       srv.URL,
		Profile:         profile,
		SigningIdentity: signingIdentity(t),
	})
	require.NoError(t, err)
	handler = s.Router()

	return srv
}

func requestToken(t *testing.T, srv *httptest.Server, form url.Values) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.PostForm(srv.URL+"/connect/token", form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func benchForm(scope string) url.Values {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"bench-runner"},
		"client_secret": {"bench-runner-secret"},
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	return form
}

func TestTokenRejectsUnsupportedGrant(t *testing.T) {
	srv := newIssuerServer(t, secprofile.S2)

	form := benchForm("")
	form.Set("grant_type", "authorization_code")

	resp, body := requestToken(t, srv, form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unsupported_grant_type", body["error"])
}

func TestTokenRejectsUnknownClient(t *testing.T) {
	srv := newIssuerServer(t, secprofile.S2)

	form := benchForm("")
	form.Set("client_secret", "wrong")

	resp, body := requestToken(t, srv, form)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_client", body["error"])
}

func TestTokenScopeIntersection(t *testing.T) {
	srv := newIssuerServer(t, secprofile.S2)

	resp, body := requestToken(t, srv, benchForm("orders.read bogus.scope"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "orders.read", body["scope"])
}

func TestTokenScopeIntersectionDeduplicates(t *testing.T) {
	srv := newIssuerServer(t, secprofile.S2)

	resp, body := requestToken(t, srv, benchForm("orders.read orders.read orders.write orders.read"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "orders.read orders.write", body["scope"])
}

func TestTokenEmptyScopeGrantsFullAllowList(t *testing.T) {
	srv := newIssuerServer(t, secprofile.S2)

	resp, body := requestToken(t, srv, benchForm(""))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	granted := strings.Fields(body["scope"].(string))
	assert.ElementsMatch(t, []string{"orders.read", "orders.write", "inventory.write"}, granted)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.InDelta(t, 3600, body["expires_in"], 1)
}

func TestIssuedTokenValidatesAgainstOwnJWKS(t *testing.T) {
	srv := newIssuerServer(t, secprofile.S4)

	resp, body := requestToken(t, srv, benchForm("orders.write"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := jwt.NewValidator(jwt.ValidatorConfig{Authority: srv.URL, Timeout: 2 * time.Second})
	claims, err := v.Validate(context.Background(), body["access_token"].(string))
	require.NoError(t, err)

	assert.Equal(t, "bench-runner", claims.Subject)
	assert.Equal(t, "bench-runner", claims.ClientID)
	assert.Equal(t, []string{"orders.write"}, claims.Scopes)
}

func TestDiscoveryDocument(t *testing.T) {
	srv := newIssuerServer(t, secprofile.S2)

	resp, err := http.Get(srv.URL + "/.well-known/openid-configuration")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, srv.URL, doc["issuer"])
	assert.Equal(t, srv.URL+"/connect/token", doc["token_endpoint"])
	assert.Equal(t, srv.URL+"/.well-known/jwks", doc["jwks_uri"])
}

func TestHealthReportsProfile(t *testing.T) {
	srv := newIssuerServer(t, secprofile.S3)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "S3", body["profile"])
}
