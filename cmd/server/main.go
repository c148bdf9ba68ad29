package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stockpulse/portfolio-engine/internal/analytics"
	"github.com/stockpulse/portfolio-engine/internal/api"
	"github.com/stockpulse/portfolio-engine/internal/auth"
	"github.com/stockpulse/portfolio-engine/internal/cache"
	"github.com/stockpulse/portfolio-engine/internal/config"
	"github.com/stockpulse/portfolio-engine/internal/market"
	"github.com/stockpulse/portfolio-engine/internal/news"
	"github.com/stockpulse/portfolio-engine/internal/predict"
	"github.com/stockpulse/portfolio-engine/internal/quote"
	"github.com/stockpulse/portfolio-engine/internal/store"
	"github.com/stockpulse/portfolio-engine/internal/trade"
	"github.com/stockpulse/portfolio-engine/internal/warm"
	"github.com/stockpulse/portfolio-engine/internal/watchlist"
)

const requestTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// --- Initialize store ---
	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			slog.Error("database unreachable", "err", err)
			os.Exit(1)
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	// --- Initialize quote cache ---
	var cacheStore cache.Store
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			// The cache degrades to misses, so keep serving.
			slog.Warn("redis unreachable", "err", err)
		}
		cacheStore = cache.NewRedisStore(rdb)
		slog.Info("Redis cache enabled")
	} else {
		cacheStore = cache.NewMemoryStore()
	}
	quoteCache := cache.New(cacheStore, logger)

	// --- Market data ---
	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	source := quote.NewYahoo(
		quote.WithBaseURL(cfg.QuoteBaseURL),
		quote.WithRateLimit(cfg.QuoteRateLimit),
		quote.WithHTTPClient(httpClient),
		quote.WithLogger(logger),
	)
	feeds := news.NewFeedCollector(cfg.NewsFeeds, httpClient, logger)
	marketSvc := market.NewService(source, feeds, quoteCache, logger)
	predictSvc := predict.NewService(marketSvc, predict.NewHeuristic(nil), quoteCache)

	// --- WebSocket hub ---
	wsHub := trade.NewWSHub(logger)
	go wsHub.Run(ctx)

	// --- Domain services ---
	tradeSvc := trade.NewService(st, marketSvc, wsHub, logger)
	analyticsSvc := analytics.NewService(st, marketSvc, analytics.DefaultVolatility, logger)
	watchlistSvc := watchlist.NewService(st, marketSvc, logger)

	// --- Cache warming ---
	if cfg.WarmSchedule != "" {
		warmer := warm.NewScheduler(st, marketSvc, logger)
		if err := warmer.Start(cfg.WarmSchedule); err != nil {
			slog.Error("invalid WARM_SCHEDULE", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, warmer.Stop)
	}

	// --- Authentication ---
	authMW := auth.Middleware([]byte(cfg.JWTSecret))
	if cfg.AuthDisabled {
		slog.Warn("AUTH_DISABLED set, trusting " + auth.UserHeader + " header")
		authMW = auth.HeaderMiddleware
	}

	handler := api.NewRouter(api.Deps{
		Market:         marketSvc,
		Predict:        predictSvc,
		Trades:         tradeSvc,
		Analytics:      analyticsSvc,
		Watchlist:      watchlistSvc,
		Hub:            wsHub,
		Auth:           authMW,
		Logger:         logger,
		RequestTimeout: requestTimeout,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("portfolio-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down portfolio-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	stop()
	fmt.Println("portfolio-engine stopped")
}
