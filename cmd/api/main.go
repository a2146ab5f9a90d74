package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	zlog "github.com/rs/zerolog/log"

	"shop-orders/internal/cache"
	"shop-orders/internal/config"
	"shop-orders/internal/database"
	"shop-orders/internal/events"
	"shop-orders/internal/infrastructure/payment"
	"shop-orders/internal/logger"
	"shop-orders/internal/metrics"
	"shop-orders/internal/repo"
	"shop-orders/internal/server"
	"shop-orders/internal/service"
	"shop-orders/internal/tracing"
	"shop-orders/internal/worker"
)

const serviceName = "shop-orders"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}
	logger.Init(serviceName, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracerProvider(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		zlog.Fatal().Err(err).Msg("init tracing")
	}

	dbs, err := database.New(ctx, cfg.DB)
	if err != nil {
		zlog.Fatal().Err(err).Msg("connect database")
	}
	db := dbs.DB()
	if err := database.Migrate(ctx, db); err != nil {
		zlog.Fatal().Err(err).Msg("migrate database")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	publisher := events.NewNoop()
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		zlog.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing order events to kafka")
	}

	statsCache := cache.NewNoop()
	if cfg.RedisAddr != "" {
		statsCache = cache.NewRedisStatsCache(cache.NewRedisClient(cfg.RedisAddr), serviceName, cfg.StatsCacheTTL)
		zlog.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.StatsCacheTTL).Msg("caching revenue reports in redis")
	}

	opts := service.Options{Publisher: publisher, Metrics: m, Cache: statsCache}
	repos := repo.NewRepositories(db)
	gateway := payment.NewMockGateway(payment.RandomOutcome, cfg.GatewayLatency)

	payments := service.NewPaymentService(db, repos.Orders, repos.Payments, gateway, opts)
	svc := server.Services{
		Customers:  service.NewCustomerService(db, repos.Customers, opts),
		Products:   service.NewProductService(db, repos.Products, opts),
		Vouchers:   service.NewVoucherService(db, repos.Vouchers, repos.Customers, opts),
		Orders:     service.NewOrderService(db, repos, cfg.VoucherPolicy, opts),
		Payments:   payments,
		Statistics: service.NewStatisticsService(repos.Statistics, opts),
	}

	rw := worker.NewReconciliationWorker(repos.Payments, payments, gateway, cfg.ReconcileInterval, cfg.ReconcileAfter)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		rw.Run(ctx)
	}()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(svc, server.Options{
			CORSOrigins: cfg.CORSOrigins,
			Metrics:     m,
			Gatherer:    reg,
			Health:      dbs.Health,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zlog.Info().Str("addr", srv.Addr).Str("voucher_policy", string(cfg.VoucherPolicy)).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("shutdown http server")
	}
	<-workerDone
	if err := publisher.Close(); err != nil {
		zlog.Error().Err(err).Msg("close event publisher")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("shutdown tracer provider")
	}
	if err := dbs.Close(); err != nil {
		zlog.Error().Err(err).Msg("close database")
	}
}
