package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/ogurasousui/employee-records/internal/platform/metrics"
)

// EmployeeServiceName は gRPC ヘルスチェックで公開するサービス名です。
const EmployeeServiceName = "employee.v1.EmployeeService"

const (
	defaultCheckInterval   = 10 * time.Second
	defaultPingTimeout     = 2 * time.Second
	defaultShutdownTimeout = 15 * time.Second
)

// Pinger はデータベースの疎通確認を行います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config はサーバーの待ち受けとタイムアウトの設定です。
type Config struct {
	HTTPListenAddr   string
	HealthListenAddr string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	CheckInterval    time.Duration
}

// Server は HTTP API と gRPC ヘルスチェックサーバーのライフサイクルを管理します。
type Server struct {
	cfg        Config
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	db         Pinger
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// Option は Server の生成オプションです。
type Option func(*Server)

// WithDatabase はヘルスチェックで疎通確認するデータベースを設定します。
func WithDatabase(db Pinger) Option {
	return func(s *Server) {
		s.db = db
	}
}

// WithMetrics はデータベースの疎通状態を記録するメトリクスを設定します。
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New は HTTP ハンドラーとヘルスチェック用 gRPC サーバーを構築します。
func New(cfg Config, handler http.Handler, opts ...Option) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	s := &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.HTTPListenAddr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		grpcServer: grpcServer,
		health:     healthServer,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run は設定されたアドレスで待ち受けを開始し、コンテキストがキャンセルされると停止します。
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.cfg.HTTPListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.HTTPListenAddr, err)
	}

	var healthLis net.Listener
	if s.cfg.HealthListenAddr != "" {
		healthLis, err = net.Listen("tcp", s.cfg.HealthListenAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("listen on %s: %w", s.cfg.HealthListenAddr, err)
		}
	}

	return s.Serve(ctx, httpLis, healthLis)
}

// Serve は渡されたリスナーで HTTP と gRPC ヘルスチェックを提供します。healthLis は nil でも構いません。
func (s *Server) Serve(ctx context.Context, httpLis, healthLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	s.logger.Info().Str("addr", httpLis.Addr().String()).Msg("http server listening")
	g.Go(func() error {
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	if healthLis != nil {
		s.logger.Info().Str("addr", healthLis.Addr().String()).Msg("grpc health server listening")
		g.Go(func() error {
			if err := s.grpcServer.Serve(healthLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.watchHealth(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	err := s.httpServer.Shutdown(ctx)

	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}

	if err != nil {
		return fmt.Errorf("shutdown HTTP: %w", err)
	}
	s.logger.Info().Msg("server stopped")
	return nil
}

// watchHealth は定期的にデータベースへ疎通確認し、ヘルスチェックの状態を更新します。
func (s *Server) watchHealth(ctx context.Context) {
	s.CheckHealth(ctx)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckHealth(ctx)
		}
	}
}

// CheckHealth はデータベースへ 1 回疎通確認し、結果をヘルスチェックとメトリクスに反映します。
func (s *Server) CheckHealth(ctx context.Context) bool {
	up := true
	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
		err := s.db.Ping(pingCtx)
		cancel()
		if err != nil {
			up = false
			s.logger.Warn().Err(err).Msg("database ping failed")
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !up {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(EmployeeServiceName, status)
	s.metrics.SetDatabaseUp(up)
	return up
}

// HealthServer は gRPC ヘルスチェックサーバーを返します。
func (s *Server) HealthServer() healthpb.HealthServer {
	return s.health
}
