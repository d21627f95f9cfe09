// cmd/gateway/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"research-crew/internal/common/camunda"
	"research-crew/internal/common/config"
	"research-crew/internal/common/database"
	"research-crew/internal/common/logger"
	"research-crew/internal/gateway"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting research gateway...")

	// --- Init Broker Client ---
	broker, err := camunda.NewClient(cfg.Camunda.BrokerAddress)
	if err != nil {
		zapLog.Fatal("broker client failed", zap.Error(err))
	}
	defer broker.Close()
	zapLog.Info("Broker connected", zap.String("address", cfg.Camunda.BrokerAddress))

	ctx := context.Background()

	// --- Init PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres ping failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch ---
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch failed", zap.Error(err))
	}
	if err := esClient.Ping(); err != nil {
		// Search stays degraded until the cluster comes back; reads and
		// submissions still work.
		zapLog.Warn("elasticsearch ping failed", zap.Error(err))
	}

	// --- Init Redis ---
	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis failed", zap.Error(err))
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		zapLog.Fatal("redis ping failed", zap.Error(err))
	}
	zapLog.Info("Redis connected successfully")

	handlers := gateway.NewHandlers(
		gateway.Config{
			ProcessID: cfg.Camunda.ProcessID,
			ESIndex:   cfg.Database.Elasticsearch.Index,
		},
		broker, redisClient, pg.DB, esClient, log,
	)

	limiter := gateway.NewRateLimiter(
		cfg.Gateway.RateLimit,
		time.Duration(cfg.Gateway.RateWindowSecs)*time.Second,
	)

	router := gateway.NewRouter(handlers, limiter)

	srv := &http.Server{
		Addr:         cfg.Gateway.ListenAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		zapLog.Info("Gateway listening", zap.String("address", cfg.Gateway.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("gateway server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("gateway shutdown failed", zap.Error(err))
	}

	zapLog.Info("Gateway stopped gracefully")
}
