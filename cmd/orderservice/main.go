// Package main runs the order service: REST plus the orders.OrderService
// gRPC listener.
package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/backchannel"
	"github.com/nemanja87/master-thesis-bench-runner/internal/bootstrap"
	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
	"github.com/nemanja87/master-thesis-bench-runner/internal/config"
	"github.com/nemanja87/master-thesis-bench-runner/internal/orders"
	"github.com/nemanja87/master-thesis-bench-runner/internal/orderspb"
	"github.com/nemanja87/master-thesis-bench-runner/pkg/metrics"
	"github.com/nemanja87/master-thesis-bench-runner/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("orderservice", os.Getenv("BENCH_CONFIG"))
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := bootstrap.Logger(cfg)
	logger.Info("starting orderservice", "version", version)
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

	// Reservation calls ride the same trust rules the gateway applies to
	// its REST clusters.
	var inventoryTransport http.RoundTripper
	scheme := "http"
	if cfg.Profile.RequiresHTTPS() {
		scheme = "https"
		if cfg.Profile.RequiresMTLS() {
			inventoryTransport = backchannel.NewTransport(material.TrustRoot, material.ClientIdentity)
		} else {
			inventoryTransport = backchannel.NewInsecureTransport()
		}
	}
	inventoryClient := orders.NewInventoryClient(
		scheme+"://"+cfg.Upstreams.InventoryREST, inventoryTransport, logger)

	svc := orders.NewService(orders.NewStore(), inventoryClient, logger)

	m := metrics.NewServiceMetrics("orderservice", version, cfg.Profile.String())
	middlewares := []func(http.Handler) http.Handler{metrics.Middleware(m)}
	if cfg.Telemetry.Enabled {
		middlewares = append(middlewares, telemetry.Middleware("orderservice", metrics.SanitizePath))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", svc.Router(cfg.Profile, validator, middlewares...))

	var tlsConfig *tls.Config
	if cfg.Profile.RequiresHTTPS() {
		tlsConfig = certs.ServerTLSConfig(material.ServerIdentity, material.TrustRoot, cfg.Profile.RequiresMTLS())
	}

	grpcSrv := buildGRPCServer(cfg, material, validator, svc, logger)
	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr())
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", cfg.Server.GRPCAddr(), "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("gRPC listening", "addr", cfg.Server.GRPCAddr())
		if err := grpcSrv.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()
	defer grpcSrv.GracefulStop()

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
	logger.Info("orderservice stopped")
}

func buildGRPCServer(cfg *config.Config, material *bootstrap.Material, validator *jwt.Validator, svc *orders.Service, logger *slog.Logger) *grpc.Server {
	opts := []grpc.ServerOption{grpc.ForceServerCodec(orderspb.Codec{})}

	if cfg.Profile.RequiresHTTPS() {
		tlsConfig := certs.ServerTLSConfig(material.ServerIdentity, material.TrustRoot, cfg.Profile.RequiresMTLS())
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
	}
	if validator != nil {
		opts = append(opts, grpc.UnaryInterceptor(jwt.UnaryServerInterceptor(validator)))
	}

	srv := grpc.NewServer(opts...)
	orderspb.RegisterOrderServiceServer(srv, orders.NewGRPCServer(svc, cfg.Profile, logger))
	return srv
}
