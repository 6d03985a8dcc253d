// Package health exposes liveness and readiness probes over HTTP and,
// optionally, the standard gRPC health protocol.
//
// Docker and Kubernetes poll the HTTP endpoints; gRPC-aware load balancers
// can consume the grpc.health.v1 service instead. Both report the same
// readiness flag.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// serviceName is the identifier reported over the gRPC health protocol.
const serviceName = "chronovox"

// Server exposes the probes. The gRPC listener is disabled when grpcPort
// is zero.
type Server struct {
	port     int
	grpcPort int
	ready    atomic.Bool

	server     *http.Server
	grpcServer *grpc.Server
	grpcHealth *grpchealth.Server
}

// New creates a health server on the given ports.
func New(port, grpcPort int) *Server {
	s := &Server{port: port, grpcPort: grpcPort, grpcHealth: grpchealth.NewServer()}
	s.grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.grpcHealth.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetReady marks the service as ready to accept traffic on both protocols.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.grpcHealth.SetServingStatus("", status)
	s.grpcHealth.SetServingStatus(serviceName, status)
}

// ListenAndServe starts the probe servers and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.grpcPort > 0 {
		go func() {
			if err := s.listenGRPC(ctx); err != nil {
				slog.Error("grpc health server failed", "error", err)
			}
		}()
	}
	return s.listenHTTP(ctx)
}

func (s *Server) listenHTTP(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleProbe)
	mux.HandleFunc("GET /readyz", s.handleProbe)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) listenGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.grpcPort))
	if err != nil {
		return fmt.Errorf("grpc health listen: %w", err)
	}

	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.grpcHealth)

	slog.Info("grpc health server listening", "port", s.grpcPort)

	go func() {
		<-ctx.Done()
		s.grpcServer.GracefulStop()
	}()

	return s.grpcServer.Serve(lis)
}
