package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bistro/internal/auth"
	"bistro/internal/config"
	"bistro/internal/database"
	"bistro/internal/handler"
	"bistro/internal/realtime"
	"bistro/internal/repository"
	"bistro/internal/roster"
	"bistro/internal/router"
	"bistro/internal/service"
	"bistro/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const hubBuffer = 64

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting bistro API server")

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Order store
	var store *repository.Store
	var ping func(context.Context) error
	if cfg.Database.Enabled() {
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()
		store = repository.NewPostgresStore(pool, logger)
		ping = pool.Ping
	} else {
		store = repository.NewMemoryStore()
		logger.Warn().Msg("DB_HOST not set, using the in-memory store; orders are lost on restart")
	}

	// Change events: the hub fans out locally, the AMQP bridge (if enabled)
	// carries events between instances and feeds them back into the hub. A
	// lost broker degrades the bridge to local delivery.
	hub := realtime.NewHub(hubBuffer, logger)
	defer hub.Close()

	var publisher realtime.Publisher = hub
	var bridge *realtime.AMQPBridge
	if cfg.AMQP.Enabled {
		bridge, err = realtime.NewAMQPBridge(cfg.AMQP.URL, cfg.AMQP.Exchange, hub, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize change event broker: %w", err)
		}
		defer bridge.Close()
		publisher = bridge
	}

	// Driver roster
	if err := seedRoster(ctx, cfg.Roster, store.Drivers, logger); err != nil {
		logger.Warn().Err(err).Msg("driver roster not seeded, continuing with existing drivers")
	}

	// File storage
	var files storage.Store
	var fileServer http.Handler
	if cfg.Storage.S3Enabled {
		files, err = storage.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.PublicBaseURL, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
	} else {
		files = storage.NewFSStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL, logger)
		fileServer = storage.FileServer(cfg.Storage.LocalDir)
		logger.Info().Str("dir", cfg.Storage.LocalDir).Msg("using local file system for uploads (S3 disabled)")
	}

	// Token verification
	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	// Initialize services
	orderService := service.NewOrderService(store.Orders, store.Assignments, publisher, logger)
	deliveryService := service.NewDeliveryService(store.Orders, store.Assignments, store.Drivers, publisher, logger)
	messageService := service.NewMessageService(store.Orders, store.Messages, publisher, hub, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Health:   handler.NewHealthHandler(store.Mode, store.Durable(), ping, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Delivery: handler.NewDeliveryHandler(orderService, deliveryService, logger),
		Messages: handler.NewMessageHandler(orderService, messageService, logger),
		Storage:  handler.NewStorageHandler(files, cfg.Storage.MaxUploadSize, logger),
		Files:    fileServer,
	}, issuer, logger)

	// Message streams never finish on their own, so their contexts are
	// cancelled when shutdown begins.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelRequests)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("store", store.Mode).
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if bridge != nil {
		g.Go(func() error {
			return bridge.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

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
		return nil
	})

	return g.Wait()
}

// seedRoster loads drivers from S3 (when enabled) or the local roster file.
func seedRoster(ctx context.Context, cfg config.RosterConfig, drivers roster.DriverUpserter, logger zerolog.Logger) error {
	fileLoader := roster.NewFileLoader(logger)

	var s3Loader roster.Loader
	if cfg.S3Enabled {
		l, err := roster.NewS3Loader(ctx, cfg.S3Bucket, cfg.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 roster loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for the driver roster (S3 disabled)")
	}

	loader := roster.NewFallbackLoader(s3Loader, fileLoader, cfg.S3Key, logger)
	_, err := roster.Seed(ctx, loader, cfg.File, drivers, logger)
	return err
}
