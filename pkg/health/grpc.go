package health

import (
	"context"
	"fmt"
	"net"

	"whatsapp-intake/backend/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// GRPCServer exposes the checker through the standard grpc.health.v1 service
type GRPCServer struct {
	healthpb.UnimplementedHealthServer
	checker *Checker
	server  *grpc.Server
	log     *logger.Logger
}

// NewGRPCServer wires checker into a gRPC server
func NewGRPCServer(checker *Checker, log *logger.Logger) *GRPCServer {
	if log == nil {
		log = logger.Discard()
	}
	s := &GRPCServer{
		checker: checker,
		server:  grpc.NewServer(),
		log:     log.WithComponent("grpc_health"),
	}
	healthpb.RegisterHealthServer(s.server, s)
	return s
}

// Check reports SERVING when every critical component is up. A non-empty
// service name selects a single component.
func (s *GRPCServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	report := s.checker.Run(ctx)

	if name := req.GetService(); name != "" {
		component, ok := report.Components[name]
		if !ok {
			return nil, status.Errorf(codes.NotFound, "unknown service %q", name)
		}
		if component.Status == StatusDown {
			return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
		}
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
	}

	if !report.Healthy {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

// Serve listens on addr until Stop is called
func (s *GRPCServer) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc health listen %s: %w", addr, err)
	}
	s.log.Info("gRPC health server listening", "addr", addr)
	return s.server.Serve(lis)
}

// Stop drains in-flight RPCs
func (s *GRPCServer) Stop() {
	s.server.GracefulStop()
}
