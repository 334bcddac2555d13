// Package main runs the edge gateway.
package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/backchannel"
	"github.com/nemanja87/master-thesis-bench-runner/internal/bootstrap"
	"github.com/nemanja87/master-thesis-bench-runner/internal/config"
	"github.com/nemanja87/master-thesis-bench-runner/internal/gateway"
	"github.com/nemanja87/master-thesis-bench-runner/pkg/metrics"
	"github.com/nemanja87/master-thesis-bench-runner/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("gateway", os.Getenv("BENCH_CONFIG"))
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := bootstrap.Logger(cfg)
	logger.Info("starting gateway", "version", version)
	bootstrap.LogProfile(logger, cfg)

	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.Warn("telemetry init failed", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	material, err := bootstrap.LoadMaterial(cfg)
	if err != nil {
		logger.Error("failed to load certificate material", "error", err)
		os.Exit(1)
	}

	var validator *jwt.Validator
	if cfg.Profile.RequiresJWT() {
		transport := backchannel.NewTransport(material.TrustRoot, material.ClientIdentity)
		defer transport.CloseIdleConnections()

		validator = jwt.NewValidator(jwt.ValidatorConfig{
			Authority: cfg.JWT.AuthorityTrimmed(),
			Transport: transport,
			Timeout:   cfg.JWT.JWKSTimeout,
			Logger:    logger,
		})

		preloadCtx, preloadCancel := context.WithTimeout(ctx, cfg.JWT.JWKSTimeout)
		if err := validator.PreloadKeys(preloadCtx); err != nil {
			logger.Warn("signing key preload failed, falling back to on-demand fetch", "error", err)
		}
		preloadCancel()
	}

	g, err := gateway.New(gateway.Options{
		Profile:        cfg.Profile,
		OrdersREST:     cfg.Upstreams.OrdersREST,
		InventoryREST:  cfg.Upstreams.InventoryREST,
		OrdersGRPC:     cfg.Upstreams.OrdersGRPC,
		TrustRoot:      material.TrustRoot,
		ClientIdentity: material.ClientIdentity,
		Validator:      validator,
		Tracker:        gateway.NewHandshakeTracker(0),
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to build gateway", "error", err)
		os.Exit(1)
	}
	defer g.Close()

	m := metrics.NewServiceMetrics("gateway", version, cfg.Profile.String())
	middlewares := []func(http.Handler) http.Handler{metrics.Middleware(m)}
	if cfg.Telemetry.Enabled {
		middlewares = append(middlewares, telemetry.Middleware("gateway", metrics.SanitizePath))
	}

	var handler http.Handler = g.Handler(middlewares...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", handler)

	var serveHandler http.Handler = mux
	var tlsConfig *tls.Config
	if cfg.Profile.RequiresHTTPS() {
		tlsConfig = g.TLSConfig(material.ServerIdentity, material.TrustRoot)
	} else {
		// Plaintext profiles still carry exact-HTTP/2 gRPC traffic.
		serveHandler = h2c.NewHandler(mux, &http2.Server{})
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           serveHandler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := bootstrap.Serve(ctx, logger, cfg, srv, tlsConfig); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}
