package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/ata-marzban/tsdb-query-keys/internal/admin"
	"github.com/ata-marzban/tsdb-query-keys/internal/aggregator"
	"github.com/ata-marzban/tsdb-query-keys/internal/config"
	"github.com/ata-marzban/tsdb-query-keys/internal/server"
	"github.com/ata-marzban/tsdb-query-keys/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	port := flag.Int("port", 8080, "port to listen on")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *port, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := cfg.ApplyAliases(aggregator.Default); err != nil {
		logger.Error("failed to register aggregator aliases", "error", err)
		os.Exit(1)
	}

	// Create store.
	s := store.NewMemoryStore()

	// gRPC carries health checks and reflection only; the query API is REST.
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	restSrv, err := server.New(s, logger)
	if err != nil {
		logger.Error("failed to register REST routes", "error", err)
		os.Exit(1)
	}

	httpMux := http.NewServeMux()
	httpMux.Handle("/v1/", restSrv)
	httpMux.Handle("/admin/", admin.NewHandler(s, aggregator.Default, logger))

	addr := fmt.Sprintf(":%d", cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen", "addr", addr, "error", err)
		os.Exit(1)
	}

	// Multiplex gRPC and HTTP on the same port.
	m := cmux.New(lis)
	grpcLis := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpLis := m.Match(cmux.Any())

	httpServer := &http.Server{Handler: httpMux}
	go func() {
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()
	go func() {
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	logger.Info("query key service started",
		"port", cfg.Port,
		"grpc", fmt.Sprintf("localhost:%d", cfg.Port),
		"rest", fmt.Sprintf("http://localhost:%d/v1/", cfg.Port),
		"admin", fmt.Sprintf("http://localhost:%d/admin/", cfg.Port),
		"aggregators", len(aggregator.Default.Names()),
	)

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		healthSrv.Shutdown()
		grpcServer.GracefulStop()
		httpServer.Close()
		lis.Close()
	}()

	if err := m.Serve(); err != nil && !isClosedErr(err) {
		logger.Error("cmux serve error", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the optional config file; flags given on the command
// line override its values.
func loadConfig(path string, port int, logLevel string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = port
		case "log-level":
			cfg.LogLevel = logLevel
		}
	})
	return cfg, cfg.Validate()
}

// isClosedErr reports whether err is cmux reporting its listener closed,
// which is expected on shutdown.
func isClosedErr(err error) bool {
	return errors.Is(err, cmux.ErrListenerClosed) ||
		errors.Is(err, cmux.ErrServerClosed) ||
		errors.Is(err, net.ErrClosed)
}
