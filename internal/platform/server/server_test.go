package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ogurasousui/employee-records/internal/platform/metrics"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(context.Context) error { return p.err }

func TestServer_CheckHealth(t *testing.T) {
	t.Parallel()

	db := &stubPinger{}
	m := metrics.New()
	srv := New(Config{}, http.NotFoundHandler(), WithDatabase(db), WithMetrics(m))

	if !srv.CheckHealth(context.Background()) {
		t.Fatalf("expected healthy database")
	}
	assertServingStatus(t, srv, healthpb.HealthCheckResponse_SERVING)

	db.err = errors.New("connection refused")
	if srv.CheckHealth(context.Background()) {
		t.Fatalf("expected unhealthy database")
	}
	assertServingStatus(t, srv, healthpb.HealthCheckResponse_NOT_SERVING)
}

func assertServingStatus(t *testing.T, srv *Server, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()

	for _, service := range []string{"", EmployeeServiceName} {
		resp, err := srv.HealthServer().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q) returned error: %v", service, err)
		}
		if resp.GetStatus() != want {
			t.Fatalf("Check(%q) = %v, want %v", service, resp.GetStatus(), want)
		}
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	t.Parallel()

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen http: %v", err)
	}
	healthLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen health: %v", err)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	srv := New(Config{ShutdownTimeout: time.Second, CheckInterval: 50 * time.Millisecond}, handler, WithDatabase(&stubPinger{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, httpLis, healthLis)
	}()

	resp, err := http.Get("http://" + httpLis.Addr().String() + "/")
	if err != nil {
		cancel()
		t.Fatalf("http get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("unexpected body %q", body)
	}

	conn, err := grpc.NewClient(healthLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		cancel()
		t.Fatalf("grpc client: %v", err)
	}
	defer conn.Close()

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()

	var status healthpb.HealthCheckResponse_ServingStatus
	for {
		hc, err := healthpb.NewHealthClient(conn).Check(checkCtx, &healthpb.HealthCheckRequest{Service: EmployeeServiceName})
		if err == nil {
			status = hc.GetStatus()
			if status == healthpb.HealthCheckResponse_SERVING {
				break
			}
		}
		if checkCtx.Err() != nil {
			cancel()
			t.Fatalf("health never reported SERVING (last %v, err %v)", status, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop")
	}
}
