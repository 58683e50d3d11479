package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/msdbook/msdsim/internal/simd"
	"github.com/msdbook/msdsim/internal/storage"
	"github.com/msdbook/msdsim/pkg/config"
	"github.com/msdbook/msdsim/pkg/logger"
	"google.golang.org/grpc"
)

func main() {
	var configPath string
	var grpcAddr string
	var httpAddr string
	var logLevel string

	flag.StringVar(&configPath, "config", "", "path to the service config YAML (defaults when empty)")
	flag.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides config)")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	if grpcAddr != "" {
		cfg.Server.GRPCAddr = grpcAddr
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger.SetDefault(logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archive, err := openArchive(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open archive", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			logger.Error("archive close error", "error", err)
		}
	}()

	evaluator := simd.NewEvaluator(cfg.Evaluation, archive)
	store := simd.NewRunStore()
	executor := simd.NewRunExecutor(store, evaluator)

	httpAPI, err := simd.NewHTTPServer(store, executor, evaluator)
	if err != nil {
		logger.Error("failed to build HTTP server", "error", err)
		os.Exit(1)
	}
	grpcAPI, err := simd.NewFisheryGRPCServer(store, executor, evaluator)
	if err != nil {
		logger.Error("failed to build gRPC server", "error", err)
		os.Exit(1)
	}

	// TODO: add TLS credentials before exposing the gRPC listener outside localhost.
	grpcServer := grpc.NewServer()
	simd.RegisterFisheryServiceServer(grpcServer, grpcAPI)

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpAPI.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	executor.Shutdown()
}

// openArchive creates and initialises the configured evaluation store.
func openArchive(ctx context.Context, cfg config.StoreConfig) (storage.Store, error) {
	if cfg.Backend == "sqlite" && cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, err
		}
	}
	archive, err := storage.NewStore(cfg.Backend, cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := archive.Init(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}
