package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopcart/internal/cache"
	"shopcart/internal/cart"
	"shopcart/internal/config"
	"shopcart/internal/database"
	"shopcart/internal/handler"
	"shopcart/internal/pricing"
	"shopcart/internal/repository"
	"shopcart/internal/router"
	"shopcart/internal/service"

	"github.com/google/uuid"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shopcart API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize Redis client for cart badge counts and order events.
	// A nil client degrades every cache call to a no-op.
	var redisClient *cache.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.New(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to connect to redis, continuing without cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	} else {
		logger.Info().Msg("redis disabled, cart badge cache and order events are off")
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	// Initialize the pricing resolver and the in-memory cart manager
	resolver := pricing.NewResolver(pricing.Strategy(cfg.Cart.PromotionStrategy))
	syncCfg := cart.SyncerConfig{
		Window:       cfg.Cart.DebounceWindow(),
		WriteTimeout: cfg.Cart.SyncWriteTimeout(),
		MaxRetries:   cfg.Cart.SyncMaxRetries,
		RetryBackoff: cfg.Cart.SyncRetryBackoff(),
	}
	manager := cart.NewManager(cartRepo, resolver, redisClient, syncCfg, logger)
	// Close flushes pending cart writes; deferred after pool.Close so it runs
	// while the pool is still open.
	defer manager.Close()

	// Order-canceled notifications ride on the Redis pub/sub channel
	notifier := service.NotifierFunc(func(ctx context.Context, orderID uuid.UUID, userID string) {
		if redisClient == nil {
			return
		}
		redisClient.PublishOrderCanceled(ctx, orderID, userID)
	})

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(manager, cartRepo, productRepo, redisClient, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, manager, resolver, notifier, logger)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService, logger)
	cartHandler := handler.NewCartHandler(cartService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)

	// Initialize router
	mux := router.New(productHandler, cartHandler, orderHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
