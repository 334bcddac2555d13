// Package bootstrap carries the startup plumbing shared by the service
// mains: logger construction, certificate material loading per the active
// profile, and graceful HTTP serving. Keeping it here keeps the mains down
// to wiring.
package bootstrap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
	"github.com/nemanja87/master-thesis-bench-runner/internal/config"
)

// Logger builds the process logger from config. JSON output is the
// default; level falls back to info on unknown input.
func Logger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.LogFormat) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", cfg.Service)
	slog.SetDefault(logger)
	return logger
}

// LogProfile announces the resolved profile. An unrecognized SEC_PROFILE
// value silently disables all security, so the coercion is logged loudly.
func LogProfile(logger *slog.Logger, cfg *config.Config) {
	if !cfg.ProfileRecognized {
		logger.Warn("unrecognized security profile, coerced to S0",
			"input", cfg.ProfileInput)
	}
	logger.Info("security profile active",
		"profile", cfg.Profile.String(),
		"https", cfg.Profile.RequiresHTTPS(),
		"mtls", cfg.Profile.RequiresMTLS(),
		"jwt", cfg.Profile.RequiresJWT(),
	)
}

// Material is the certificate set a service loads at startup. Fields are
// nil when the profile does not need them.
type Material struct {
	ServerIdentity *certs.Identity
	TrustRoot      *x509.Certificate
	ClientIdentity *certs.Identity
}

// LoadMaterial loads certificate material per the active profile and fails
// startup when a required piece is absent. The CA trust root is mandatory
// under every profile that secures traffic, the client identity whenever
// outbound calls must authenticate (mTLS handshakes, or token and JWKS
// fetches over the trusted channel), and the server identity whenever
// listeners terminate TLS. Under S0 everything is best effort.
func LoadMaterial(cfg *config.Config) (*Material, error) {
	profile := cfg.Profile
	secured := profile.RequiresHTTPS() || profile.RequiresMTLS() || profile.RequiresJWT()
	m := &Material{}

	var err error
	m.TrustRoot, err = certs.LoadTrustRoot(cfg.TLS.CACertPath, !secured)
	if err != nil {
		return nil, err
	}

	m.ClientIdentity, err = certs.LoadPEMIdentity(
		cfg.TLS.ClientCertPath, cfg.TLS.ClientCertKeyPath,
		!(profile.RequiresMTLS() || profile.RequiresJWT()))
	if err != nil {
		return nil, err
	}

	m.ServerIdentity, err = certs.LoadPKCS12Identity(
		cfg.TLS.ServerCertPath, cfg.TLS.ServerCertPassword, !profile.RequiresHTTPS())
	if err != nil {
		return nil, err
	}

	return m, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout. A non-nil tlsConfig selects a TLS
// listener.
func Serve(ctx context.Context, logger *slog.Logger, cfg *config.Config, srv *http.Server, tlsConfig *tls.Config) error {
	errCh := make(chan error, 1)

	go func() {
		var err error
		if tlsConfig != nil {
			srv.TLSConfig = tlsConfig
			logger.Info("listening with TLS", "addr", srv.Addr)
			err = srv.ListenAndServeTLS("", "")
		} else {
			logger.Info("listening", "addr", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
