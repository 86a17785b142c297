package grpc

import (
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check service reflecting sink connectivity
const ServiceName = "climate-logger"

// StatusServer exposes the standard gRPC health service.
// It implements ports.StatusReporter.
type StatusServer struct {
	health *health.Server
	server *grpc.Server
}

// NewStatusServer creates a server reporting NOT_SERVING until the sink connects
func NewStatusServer(opts ...grpc.ServerOption) *StatusServer {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, hs)

	// Enable gRPC reflection for grpcurl testing
	reflection.Register(srv)

	return &StatusServer{health: hs, server: srv}
}

// SetSinkConnected flips the service status
func (s *StatusServer) SetSinkConnected(connected bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		status = healthpb.HealthCheckResponse_SERVING
	}
	log.Debug().Str("status", status.String()).Msg("sink status changed")
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks serving on lis until Stop is called
func (s *StatusServer) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("status server listening")
	return s.server.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains the server
func (s *StatusServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
