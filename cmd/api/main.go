package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-reconcile/internal/api"
	"market-reconcile/internal/config"
	"market-reconcile/internal/data"
	"market-reconcile/internal/ingest"
	"market-reconcile/internal/metrics"
	"market-reconcile/internal/model"
	"market-reconcile/internal/scheduler"
	"market-reconcile/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	// Get configuration from file and environment
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfgPath != "" {
		log.Printf("Loaded config from %s", cfgPath)
	}

	metrics.Init()

	marketLoc, err := data.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		log.Fatalf("Invalid market timezone: %v", err)
	}

	backing, err := store.Open(cfg.StoreOptions())
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer backing.Close()
	series := store.NewCached(backing, cfg.Store.CacheTTL)

	client := data.NewOMIEClient(cfg.Source.BaseURL, cfg.Source.Timeout)
	fetcher := data.NewFetcher(client, cfg.CacheRoot, cfg.MaxFetchRetries)
	builder := ingest.NewBuilder(fetcher, data.NewDayParser(marketLoc), series, cfg.WorkerPoolSize)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go series.RunCleanup(ctx, cfg.Store.CacheTTL)

	if cfg.Schedule.RebuildCron != "" {
		sched := scheduler.NewScheduler(ctx, builder, cfg.Schedule.Years, marketLoc)
		if err := sched.Register(cfg.Schedule.RebuildCron); err != nil {
			log.Fatalf("Failed to register rebuild task: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// Set up Gin router
	if cfg.API.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Series:  series,
		Builder: builder,
		Variants: func(year int) ([]model.ProductionSeries, error) {
			return cfg.LoadVariants(year)
		},
		Plant:          cfg.Plant,
		AllowedOrigins: cfg.API.AllowedOrigins,
	})

	// Start server
	srv := &http.Server{
		Addr:              cfg.API.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutdown signal received, stopping...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	log.Println("API server stopped")
}
