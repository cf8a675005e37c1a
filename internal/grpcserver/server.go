// Package grpcserver exposes the standard gRPC health service next to the
// HTTP API so orchestrators can health-check the process.
package grpcserver

import (
	"context"
	"log"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"inbox-service/internal/observability"
)

// ServiceName is the name reported by the health service.
const ServiceName = "inbox.v1.Inbox"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server wraps a grpc.Server with a health service.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

// New builds the server with tracing and metrics interceptors.
func New() *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{srv: srv, health: hs}
}

// SetServing flips the overall and named service status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Refresh sets the status from a database ping.
func (s *Server) Refresh(ctx context.Context, db Pinger) {
	err := db.PingContext(ctx)
	if err != nil {
		log.Printf("health check failed: %v", err)
	}
	s.SetServing(err == nil)
}

// Serve blocks serving on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Stop marks the service down and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
