package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	httphandler "github.com/ogurasousui/employee-records/internal/adapters/http/handler"
	"github.com/ogurasousui/employee-records/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-records/internal/core/employee"
	"github.com/ogurasousui/employee-records/internal/platform/config"
	pg "github.com/ogurasousui/employee-records/internal/platform/db/postgres"
	"github.com/ogurasousui/employee-records/internal/platform/logger"
	"github.com/ogurasousui/employee-records/internal/platform/metrics"
	"github.com/ogurasousui/employee-records/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Str("path", cfgPath).Msg("failed to load config")
	}

	log := logger.Init(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	var poolOpts []pg.PoolOption
	if log.GetLevel() <= zerolog.TraceLevel {
		poolOpts = append(poolOpts, pg.WithQueryLogger(log, tracelog.LogLevelDebug))
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database, poolOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database pool")
	}
	defer dbPool.Close()

	m := metrics.New()

	txManager := pg.NewTransactionManager(dbPool, pg.WithUnavailableError(employee.ErrStoreUnavailable))
	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	employeeSvc := employee.NewService(employeeRepo, nil, txManager,
		employee.WithPaginator(employee.NewPaginator(cfg.Employees.DefaultPageSize, cfg.Employees.MaxPageSize)),
		employee.WithRecentHireWindow(cfg.Employees.RecentHireWindow),
	)

	router := httphandler.NewRouter(httphandler.RouterConfig{
		Employees:      employeeSvc,
		DB:             dbPool,
		Metrics:        m,
		Logger:         log,
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	srv := server.New(server.Config{
		HTTPListenAddr:   cfg.Server.HTTPListenAddr,
		HealthListenAddr: cfg.Server.HealthListenAddr,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	}, router,
		server.WithDatabase(dbPool),
		server.WithMetrics(m),
		server.WithLogger(log),
	)

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}
