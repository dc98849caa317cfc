// Package grpcapi serves the standard gRPC health protocol so orchestrators
// can probe rollcall-server without going through HTTP.
package grpcapi

import (
	"context"
	"log"
	"net"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall "".
const ServiceName = "rollcall.Reconciler"

type Dependencies struct {
	Logger *log.Logger
	Addr   string

	// Probe reports whether the backing store is usable.  Nil means always
	// serving.
	Probe func(ctx context.Context) error

	// ProbeInterval defaults to 15s.
	ProbeInterval time.Duration
}

type Server struct {
	deps    Dependencies
	grpc    *grpc.Server
	health  *health.Server
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

func NewServer(deps Dependencies) *Server {
	if deps.ProbeInterval <= 0 {
		deps.ProbeInterval = 15 * time.Second
	}
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{deps: deps, grpc: gs, health: hs, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// Serve probes once, starts the probe loop and blocks serving lis.
func (s *Server) Serve(lis net.Listener) error {
	if s.started.CompareAndSwap(false, true) {
		s.probe(s.ctx)
		go s.loop(s.ctx)
	}
	return s.grpc.Serve(lis)
}

// Start listens on deps.Addr and serves.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.deps.Addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Shutdown marks every service NOT_SERVING, then stops gracefully or
// forcefully when ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()
	s.cancel()
	if s.started.Load() {
		<-s.done
	}

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

func (s *Server) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.deps.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *Server) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.deps.Probe != nil {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := s.deps.Probe(pctx)
		cancel()
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if s.deps.Logger != nil {
				s.deps.Logger.Printf("grpc health probe failed: %v", err)
			}
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
