package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	billingapp "shop-billing/internal/billing/application"
	billingpostgres "shop-billing/internal/billing/infrastructure/postgres"
	billinghttp "shop-billing/internal/billing/interfaces/http"
	"shop-billing/internal/observability/metrics"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := billingpostgres.NewPool(ctx, billingpostgres.PoolConfig{
		DSN:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		AcquireTimeout:  cfg.Database.AcquireTimeout,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := pool.Migrate(ctx); err != nil {
			logger.Fatalf("db migrate error: %v", err)
		}
	}

	metrics.Init(pool, logger)

	shopRepo := billingpostgres.NewShopRepository(pool)
	deviceRepo := billingpostgres.NewDeviceRepository(pool)
	billRepo := billingpostgres.NewBillRepository(pool)

	policy, err := billingapp.ParseMonthlyPolicy(cfg.Billing.MonthlyPolicy)
	if err != nil {
		logger.Fatalf("billing policy error: %v", err)
	}
	resolver, err := billingapp.NewHierarchyResolver(shopRepo, billingapp.WithMaxDepth(cfg.Billing.MaxDepth))
	if err != nil {
		logger.Fatalf("hierarchy resolver error: %v", err)
	}
	aggregator, err := billingapp.NewBillingAggregator(
		resolver,
		deviceRepo,
		billRepo,
		billingapp.WithMonthlyPolicy(policy),
		billingapp.WithBatchSize(cfg.Billing.BatchSize),
		billingapp.WithParallelism(cfg.Billing.Parallelism),
		billingapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("billing aggregator error: %v", err)
	}
	queryService, err := billingapp.NewQueryService(resolver, aggregator)
	if err != nil {
		logger.Fatalf("query service error: %v", err)
	}
	shopHandler, err := billinghttp.NewHandler(
		queryService,
		billinghttp.WithLogger(logger),
		billinghttp.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	if err != nil {
		logger.Fatalf("shop handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/shop/", shopHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown error: %v", err)
		}
	}()

	logger.Printf("http listening on %s (monthly_policy=%s max_conns=%d)", cfg.HTTPAddr, policy, cfg.Database.MaxConns)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server error: %v", err)
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
