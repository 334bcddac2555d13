// Package main runs the results collector.
package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"github.com/nemanja87/master-thesis-bench-runner/internal/bootstrap"
	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
	"github.com/nemanja87/master-thesis-bench-runner/internal/config"
	"github.com/nemanja87/master-thesis-bench-runner/internal/results"
	"github.com/nemanja87/master-thesis-bench-runner/pkg/metrics"
	"github.com/nemanja87/master-thesis-bench-runner/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("resultsservice", os.Getenv("BENCH_CONFIG"))
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := bootstrap.Logger(cfg)
	logger.Info("starting resultsservice", "version", version)
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

	svc := results.NewService(results.NewStore(), logger)

	m := metrics.NewServiceMetrics("resultsservice", version, cfg.Profile.String())
	middlewares := []func(http.Handler) http.Handler{metrics.Middleware(m)}
	if cfg.Telemetry.Enabled {
		middlewares = append(middlewares, telemetry.Middleware("resultsservice", metrics.SanitizePath))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", svc.Router(cfg.Profile, middlewares...))

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
	logger.Info("resultsservice stopped")
}
