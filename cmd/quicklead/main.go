package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/api"
	"github.com/varmayadav12345678-cell/quicklead/internal/browser"
	"github.com/varmayadav12345678-cell/quicklead/internal/collector"
	"github.com/varmayadav12345678-cell/quicklead/internal/config"
	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/extractor"
	"github.com/varmayadav12345678-cell/quicklead/internal/fetcher"
	"github.com/varmayadav12345678-cell/quicklead/internal/monitoring"
	"github.com/varmayadav12345678-cell/quicklead/internal/pool"
	"github.com/varmayadav12345678-cell/quicklead/internal/resolver"
	"github.com/varmayadav12345678-cell/quicklead/internal/session"
	"github.com/varmayadav12345678-cell/quicklead/internal/storage"
	"github.com/varmayadav12345678-cell/quicklead/internal/useragent"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Optional storage layer
	var pgStore *storage.PostgresStore
	if cfg.PostgresURL != "" {
		pgStore, err = storage.NewPostgresStore(cfg.PostgresURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
	}
	var redisStore *storage.RedisStore
	if cfg.RedisAddr != "" {
		redisStore = storage.NewRedisStore(cfg.RedisAddr)
	}

	metrics := monitoring.NewMetrics()
	agents := useragent.NewRotator(time.Now().UnixNano())
	chrome := browser.New(agents, logger)

	// Core pipeline
	ext := extractor.New(extractor.Filters{
		BlockedDomains:  cfg.BlockedEmailDomains,
		BlockedKeywords: cfg.BlockedEmailKeywords,
	})
	res := resolver.New(cfg.GenericEmailDomains)
	detailFetcher := fetcher.New(
		chrome,
		fetcher.NewHTTPClient(agents),
		fetcher.NewAddressParser(),
		ext,
		res,
		logger,
	)

	var recordCache pool.RecordCache
	if redisStore != nil {
		recordCache = redisStore
	}
	cacheTTL := time.Duration(cfg.DedupTTLDays) * 24 * time.Hour
	detailPool := pool.New(detailFetcher, recordCache, cacheTTL, metrics, logger)
	linkCollector := collector.New(chrome, metrics, logger)

	defaults := domain.JobConfig{
		MaxScrolls:    cfg.MaxScrolls,
		MaxWorkers:    cfg.DetailWorkers,
		ScrapeTimeout: cfg.ScrapeTimeout,
		Headless:      cfg.Headless,
		Proxy:         cfg.Proxy,
	}
	var archiver session.Archiver
	if pgStore != nil {
		archiver = pgStore
	}
	sessions := session.NewManager(cfg.MaxSessions, defaults, linkCollector, detailPool, archiver, metrics, logger)

	// API server
	server := api.NewServer(cfg, sessions, pgStore, redisStore, logger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions.CancelAll()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
