package api

import (
	"context"
	"fmt"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dfrtlabs/loglens/internal/config"
)

// Server owns the gRPC listener and its lifecycle.
type Server struct {
	cfg        config.ServerConfig
	grpcServer *grpc.Server
	listener   net.Listener
	health     *health.Server
}

// NewServer binds cfg.Address and registers the analyzer, health and reflection services.
func NewServer(cfg config.ServerConfig, service AnalyzerServer, opts ...grpc.ServerOption) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("analyzer service is required")
	}
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}
	serverOpts = append(serverOpts, opts...)
	grpcServer := grpc.NewServer(serverOpts...)

	RegisterAnalyzerServer(grpcServer, service)
	grpc_prometheus.Register(grpcServer)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	reflection.Register(grpcServer)

	return &Server{
		cfg:        cfg,
		grpcServer: grpcServer,
		listener:   lis,
		health:     healthSrv,
	}, nil
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	return s.grpcServer.Serve(s.listener)
}

// Shutdown marks the server NOT_SERVING and stops gracefully, falling back
// to a hard stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.Stop()
	case <-stopped:
	}
}

// Address is the bound listener address.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
