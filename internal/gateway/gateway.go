// Package gateway implements the edge reverse proxy. It terminates TLS or
// mTLS per the active profile, validates bearer tokens before forwarding
// when the profile demands them, and routes by path prefix: REST order and
// inventory traffic to the backend HTTP clusters, everything else to the
// orders gRPC cluster over exact HTTP/2.
package gateway

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/backchannel"
	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
)

// Options configures the gateway.
type Options struct {
	Profile secprofile.Profile

	// Backend cluster addresses as host:port; the scheme follows the
	// profile's transport requirement.
	OrdersREST    string
	InventoryREST string
	OrdersGRPC    string

	// TrustRoot anchors outbound mTLS verification; ClientIdentity is
	// presented to the backends when the profile requires mTLS.
	TrustRoot      *x509.Certificate
	ClientIdentity *certs.Identity

	// Validator checks bearer tokens; required when the profile requires
	// JWT.
	Validator *jwt.Validator

	Tracker *HandshakeTracker
	Logger  *slog.Logger
}

// Gateway is the edge reverse proxy.
type Gateway struct {
	profile   secprofile.Profile
	validator *jwt.Validator
	tracker   *HandshakeTracker
	logger    *slog.Logger

	ordersProxy    *httputil.ReverseProxy
	inventoryProxy *httputil.ReverseProxy
	grpcProxy      *httputil.ReverseProxy

	restTransport *http.Transport
}

// New builds the gateway and its cluster table.
func New(opts Options) (*Gateway, error) {
	if opts.Profile.RequiresJWT() && opts.Validator == nil {
		return nil, fmt.Errorf("profile %s requires a token validator", opts.Profile)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = NewHandshakeTracker(0)
	}

	g := &Gateway{
		profile:   opts.Profile,
		validator: opts.Validator,
		tracker:   tracker,
		logger:    logger,
	}

	scheme := "http"
	if opts.Profile.RequiresHTTPS() {
		scheme = "https"
	}

	// REST clusters: under TLS profiles the backends present certificates
	// from the benchmark root, which is not in the system store; server
	// verification is skipped unless mTLS requires the full backchannel.
	if opts.Profile.RequiresHTTPS() {
		if opts.Profile.RequiresMTLS() {
			g.restTransport = backchannel.NewTransport(opts.TrustRoot, opts.ClientIdentity)
		} else {
			g.restTransport = backchannel.NewInsecureTransport()
		}
	} else {
		g.restTransport = &http.Transport{}
	}

	ordersURL := &url.URL{Scheme: scheme, Host: opts.OrdersREST}
	inventoryURL := &url.URL{Scheme: scheme, Host: opts.InventoryREST}
	grpcURL := &url.URL{Scheme: scheme, Host: opts.OrdersGRPC}

	g.ordersProxy = g.newProxy(ordersURL, g.restTransport)
	g.inventoryProxy = g.newProxy(inventoryURL, g.restTransport)

	// The gRPC cluster speaks exactly HTTP/2: h2c in plaintext profiles,
	// h2 with the backchannel trust rules otherwise.
	var grpcTLS *tls.Config
	if opts.Profile.RequiresHTTPS() {
		if opts.Profile.RequiresMTLS() {
			grpcTLS = backchannel.ClientTLSConfig(opts.TrustRoot, opts.ClientIdentity)
		} else {
			grpcTLS = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: true}
		}
	}
	g.grpcProxy = g.newProxy(grpcURL, backchannel.NewHTTP2Transport(grpcTLS))
	// gRPC responses stream; do not buffer.
	g.grpcProxy.FlushInterval = -1

	return g, nil
}

func (g *Gateway) newProxy(target *url.URL, transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
			// Bearer credentials travel with the forwarded request so the
			// backends can run their own gate.
			if auth := pr.In.Header.Get("Authorization"); auth != "" {
				pr.Out.Header.Set("Authorization", auth)
			}
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			g.logger.Error("upstream call failed", "path", r.URL.Path, "error", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

// Handler builds the gateway's route table. Routes are matched in order of
// specificity: the REST prefixes first, then the gRPC catch-all.
func (g *Gateway) Handler(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Get("/healthz", g.handleHealth)

	r.Group(func(r chi.Router) {
		if g.profile.RequiresJWT() {
			r.Use(jwt.Middleware(g.validator))
		}

		r.Handle("/orders/*", http.StripPrefix("/orders", g.ordersProxy))
		r.Handle("/inventory/*", http.StripPrefix("/inventory", g.inventoryProxy))
		r.Handle("/*", g.grpcProxy)
	})

	return r
}

// TLSConfig returns the gateway's listener TLS configuration for the active
// profile, with accepted client certificate subjects recorded in the
// handshake tracker.
func (g *Gateway) TLSConfig(identity *certs.Identity, trustRoot *x509.Certificate) *tls.Config {
	cfg := certs.ServerTLSConfig(identity, trustRoot, g.profile.RequiresMTLS())
	cfg.VerifyConnection = func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) > 0 {
			subject := cs.PeerCertificates[0].Subject.String()
			g.tracker.Record(subject)
			g.logger.Debug("client certificate accepted", "subject", subject)
		}
		return nil
	}
	return cfg
}

// Tracker exposes the handshake tracker, mainly for tests.
func (g *Gateway) Tracker() *HandshakeTracker {
	return g.tracker
}

// Close releases idle upstream connections.
func (g *Gateway) Close() {
	g.restTransport.CloseIdleConnections()
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":             "ok",
		"profile":            g.profile.String(),
		"requiresHttps":      g.profile.RequiresHTTPS(),
		"requiresMtls":       g.profile.RequiresMTLS(),
		"requiresJwt":        g.profile.RequiresJWT(),
		"handshakes":         g.tracker.Count(),
		"clientCertificates": g.tracker.Subjects(),
	})
}
