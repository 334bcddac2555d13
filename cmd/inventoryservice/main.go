// Package main runs the inventory service.
package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/backchannel"
	"github.com/nemanja87/master-thesis-bench-runner/internal/bootstrap"
	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
	"github.com/nemanja87/master-thesis-bench-runner/internal/config"
	"github.com/nemanja87/master-thesis-bench-runner/internal/inventory"
	"github.com/nemanja87/master-thesis-bench-runner/pkg/metrics"
	"github.com/nemanja87/master-thesis-bench-runner/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("inventoryservice", os.Getenv("BENCH_CONFIG"))
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := bootstrap.Logger(cfg)
	logger.Info("starting inventoryservice", "version", version)
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

	svc := inventory.NewService(inventory.NewStore(0), logger)

	m := metrics.NewServiceMetrics("inventoryservice", version, cfg.Profile.String())
	middlewares := []func(http.Handler) http.Handler{metrics.Middleware(m)}
	if cfg.Telemetry.Enabled {
		middlewares = append(middlewares, telemetry.Middleware("inventoryservice", metrics.SanitizePath))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", svc.Router(cfg.Profile, validator, middlewares...))

	var tlsConfig *tls.Config
	if cfg.Profile.RequiresHTTPS() {
		tlsConfig = certs.ServerTLSConfig(material.ServerIdentity, material.TrustRoot, cfg.Profile.RequiresMTLS())
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := bootstrap.Serve(ctx, logger, cfg, httpSrv, tlsConfig); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("inventoryservice stopped")
}
