package grpcapi_test

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/BrandonDHaskell/rollcall/internal/grpcapi"
)

func startBufconn(t *testing.T, deps grpcapi.Dependencies) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	deps.Logger = log.New(io.Discard, "", 0)
	srv := grpcapi.NewServer(deps)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func waitForStatus(t *testing.T, c healthpb.HealthClient, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	var last healthpb.HealthCheckResponse_ServingStatus
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: grpcapi.ServiceName})
		cancel()
		if err == nil {
			last = resp.GetStatus()
			if last == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected status %v, last saw %v", want, last)
}

func TestHealth_ServingWithoutProbe(t *testing.T) {
	c := startBufconn(t, grpcapi.Dependencies{})
	waitForStatus(t, c, healthpb.HealthCheckResponse_SERVING)
}

func TestHealth_ProbeFailureFlipsStatus(t *testing.T) {
	var failing atomic.Bool
	c := startBufconn(t, grpcapi.Dependencies{
		ProbeInterval: 10 * time.Millisecond,
		Probe: func(context.Context) error {
			if failing.Load() {
				return errors.New("db gone")
			}
			return nil
		},
	})

	waitForStatus(t, c, healthpb.HealthCheckResponse_SERVING)
	failing.Store(true)
	waitForStatus(t, c, healthpb.HealthCheckResponse_NOT_SERVING)
	failing.Store(false)
	waitForStatus(t, c, healthpb.HealthCheckResponse_SERVING)
}
