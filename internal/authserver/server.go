// Package authserver implements the benchmark token issuer: a minimal
// client-credentials OAuth2 endpoint plus the discovery and JWKS documents
// the other services validate against.
package authserver

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	jose "github.com/go-jose/go-jose/v4"

	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
)

// Options configures the token issuer.
type Options struct {
	// Authority is the external issuer URL written into tokens and the
	// discovery document.
	Authority string
	Profile   secprofile.Profile
	// SigningIdentity holds the RSA signing certificate. Its fingerprint
	// becomes the key id published in the JWKS.
	SigningIdentity *certs.Identity
	Logger          *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Server issues benchmark access tokens and serves discovery metadata.
type Server struct {
	authority  string
	profile    secprofile.Profile
	signingKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	kid        string
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a token issuer. The signing identity must carry an RSA
// private key.
func New(opts Options) (*Server, error) {
	if opts.SigningIdentity == nil || !opts.SigningIdentity.HasPrivateKey() {
		return nil, fmt.Errorf("signing identity with private key required")
	}

	key, ok := opts.SigningIdentity.Certificate.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key is %T, want RSA", opts.SigningIdentity.Certificate.PrivateKey)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Server{
		authority:  opts.Authority,
		profile:    opts.Profile,
		signingKey: key,
		publicKey:  &key.PublicKey,
		kid:        opts.SigningIdentity.Fingerprint(),
		logger:     logger,
		now:        now,
	}, nil
}

// Router builds the issuer's HTTP routes.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Post("/connect/token", s.handleToken)
	r.Get("/.well-known/openid-configuration", s.handleDiscovery)
	r.Get("/.well-known/jwks", s.handleJWKS)
	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                s.authority,
		"token_endpoint":        s.authority + "/connect/token",
		"jwks_uri":              s.authority + "/.well-known/jwks",
		"grant_types_supported": []string{"client_credentials"},
		"scopes_supported":      allowedScopes,
	})
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	keySet := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       s.publicKey,
		KeyID:     s.kid,
		Use:       "sig",
		Algorithm: "RS256",
	}}}
	writeJSON(w, http.StatusOK, keySet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"profile": s.profile.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
