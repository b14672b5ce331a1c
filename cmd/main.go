/*
Package main is the entry point for the MarketChat relay.

It is responsible for loading configuration, initializing the global logging system,
opening the chat store, starting the relay and its liveness monitor behind the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM).
*/
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

	"marketchat/internal/app/chat"
	"marketchat/internal/app/db"
	"marketchat/internal/configs"
	"marketchat/internal/handler"
	"marketchat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_driver", cfg.StoreDriver).
		Dur("heartbeat_interval", cfg.HeartbeatInterval).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open chat store")
	}
	defer closeStore()

	relay := chat.NewRelay(cfg, store, chat.NewRegistry())
	go chat.NewMonitor(relay, cfg.HeartbeatInterval).Run(ctx)

	router := handler.Router(ctx, &handler.AppDeps{
		Relay:  relay,
		Config: cfg,
		Store:  store,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("MarketChat relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// Hijacked WebSocket connections are not covered by server.Shutdown.
	relay.Shutdown()

	logx.Info("Server gracefully stopped.")
}

// openStore returns the configured chat store and a function releasing it.
func openStore(ctx context.Context, cfg *configs.AppConfig) (handler.ChatStore, func(), error) {
	if cfg.StoreDriver == configs.StoreDriverMemory {
		store := db.NewMemoryStore()
		store.SeedDemo()
		logx.Warn("Using in-memory chat store with demo data; nothing is persisted")
		return store, func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	return db.NewStore(pool), pool.Close, nil
}
