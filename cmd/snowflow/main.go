package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/snow-flow-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/snow-flow-etl/internal/adapter/kafka"
	"github.com/couchcryptid/snow-flow-etl/internal/adapter/sitedata"
	"github.com/couchcryptid/snow-flow-etl/internal/config"
	"github.com/couchcryptid/snow-flow-etl/internal/observability"
	"github.com/couchcryptid/snow-flow-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store := sitedata.NewStore(cfg.SiteDataDir, logger)
	source := sitedata.NewCachedSource(store, cfg.SeriesCacheSize, cfg.SeriesCacheTTL, metrics)
	logger.Info("site data store ready",
		"dir", cfg.SiteDataDir, "cache_size", cfg.SeriesCacheSize,
		"cache_ttl", cfg.SeriesCacheTTL, "fetch_workers", cfg.FetchWorkers)

	builder := pipeline.NewChartBuilder(source, cfg.FetchWorkers, logger, metrics)
	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, builder, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, builder, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start chart pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
