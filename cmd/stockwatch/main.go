package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockwatch/internal/adapter/cache"
	"stockwatch/internal/adapter/gateway"
	"stockwatch/internal/adapter/handler"
	"stockwatch/internal/adapter/identity"
	"stockwatch/internal/adapter/quotes"
	"stockwatch/internal/adapter/storage"
	"stockwatch/internal/application/registry"
	"stockwatch/internal/application/service"
	"stockwatch/internal/application/usecase"
	"stockwatch/internal/concurrency/worker"
	"stockwatch/internal/domain/port"
	"stockwatch/internal/httpx"
	"stockwatch/internal/infrastructure/config"
	"stockwatch/internal/infrastructure/logger"
	"stockwatch/internal/infrastructure/server"
	"stockwatch/internal/ratelimit"
)

var (
	portFlag   = flag.Int("port", 0, "Port number")
	configPath = flag.String("config", "configs/config.yaml", "Path to config file")
	helpFlag   = flag.Bool("help", false, "Show help")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *portFlag != 0 {
		cfg.Server.Port = *portFlag
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting stockwatch", "version", "1.0.0")

	postgresAdapter, err := storage.NewPostgresAdapter(
		cfg.PostgresDSN(), cfg.PostgreSQL.MaxOpenConns, cfg.PostgreSQL.MaxIdleConns)
	if err != nil {
		log.Error("failed to initialize postgres", "error", err)
		os.Exit(1)
	}
	defer postgresAdapter.Close()

	if err := postgresAdapter.InitSchema(context.Background()); err != nil {
		log.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	redisAdapter, err := cache.NewRedisAdapter(
		cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.QuoteTTL)
	if err != nil {
		log.Error("failed to initialize redis", "error", err)
		os.Exit(1)
	}
	defer redisAdapter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Providers. Without API keys the simulated provider serves both roles
	// so the full pipeline still runs locally.
	httpClient := httpx.New(cfg.Providers.RequestTimeout)
	var primary, fallback port.QuoteProvider
	if cfg.Providers.Primary.APIKey == "" && cfg.Providers.Fallback.APIKey == "" {
		log.Warn("no provider API keys configured, using simulated quotes")
		sim := quotes.NewSimProvider()
		primary, fallback = sim, sim
	} else {
		rate := ratelimit.NewTracker(cfg.Providers.Primary.QuotaWindow, cfg.Providers.Primary.Quota)
		primary = quotes.NewFMPClient(
			cfg.Providers.Primary.BaseURL, cfg.Providers.Primary.APIKey,
			cfg.Providers.Primary.BatchSize, cfg.Providers.Primary.ChunkDelay,
			httpClient, rate, log)
		fallback = quotes.NewFinnhubClient(
			cfg.Providers.Fallback.BaseURL, cfg.Providers.Fallback.APIKey, httpClient)
	}

	interest := registry.NewInterestRegistry(cfg.Refresh.InterestTTL, log)
	conns := registry.NewConnectionRegistry(cfg.Gateway.MaxConnections, log, interest.DropUser)

	modeService := service.NewProviderModeService(log)
	marketClock := service.NewMarketClock()

	refreshService := service.NewRefreshService(
		service.RefreshConfig{
			Interval:       cfg.Refresh.Interval,
			ErrorBackoff:   cfg.Refresh.ErrorBackoff,
			PriorityDelay:  cfg.Refresh.PriorityDelay,
			RegularDelay:   cfg.Refresh.RegularDelay,
			FallbackCap:    cfg.Refresh.FallbackCap,
			WatchlistLimit: cfg.Refresh.WatchlistLimit,
		},
		conns, interest, postgresAdapter, primary, fallback,
		redisAdapter, modeService, marketClock, log)
	refreshService.Start(ctx)
	defer refreshService.Stop()

	// Cache-write workers drain the refresh loop's quote stream.
	pool := worker.NewPool(4, redisAdapter, log)
	processedCh := pool.Start(ctx, refreshService.Quotes())
	go func() {
		for range processedCh {
		}
	}()

	housekeeper := service.NewHousekeeper(
		conns, interest, cfg.Gateway.IdleTimeout, cfg.Gateway.Housekeeping, log)
	housekeeper.Start(ctx)

	hub := gateway.NewHub(conns, interest, log)
	pubsub := redisAdapter.SubscribeUpdates(ctx)
	defer pubsub.Close()
	go gateway.RunBridge(ctx, pubsub, hub, log)

	verifier := identity.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	requireAuth := handler.RequireAuth(verifier, log)

	quoteUseCase := usecase.NewQuoteUseCase(redisAdapter, primary, fallback, modeService)

	watchlistHandler := handler.NewWatchlistHandler(postgresAdapter, cfg.Refresh.WatchlistLimit, log)
	quoteHandler := handler.NewQuoteHandler(quoteUseCase, log)
	modeHandler := handler.NewModeHandler(modeService, log)
	healthHandler := handler.NewHealthHandler(postgresAdapter, redisAdapter, log)

	mux := http.NewServeMux()

	mux.Handle("GET /api/watchlist", requireAuth(http.HandlerFunc(watchlistHandler.List)))
	mux.Handle("POST /api/watchlist", requireAuth(http.HandlerFunc(watchlistHandler.Add)))
	mux.Handle("DELETE /api/watchlist/{symbol}", requireAuth(http.HandlerFunc(watchlistHandler.Remove)))
	mux.Handle("PUT /api/watchlist/{symbol}/price", requireAuth(http.HandlerFunc(watchlistHandler.UpdatePrice)))
	mux.Handle("GET /api/stocks/quote/{symbol}", requireAuth(http.HandlerFunc(quoteHandler.GetQuote)))
	mux.HandleFunc("POST /mode/primary/enable", modeHandler.EnablePrimary)
	mux.HandleFunc("POST /mode/primary/disable", modeHandler.DisablePrimary)
	mux.HandleFunc("GET /health", healthHandler.Check)
	mux.HandleFunc("/ws", gateway.ServeWS(hub, log))

	srv := server.New(cfg.Server.Port, mux, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, log)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down gracefully")
	cancel()
	refreshService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	log.Info("shutdown complete")
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  stockwatch [--port <N>] [--config <path>]")
	fmt.Println("  stockwatch --help")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --port N        Port number")
	fmt.Println("  --config PATH   Path to config file (default configs/config.yaml)")
}
