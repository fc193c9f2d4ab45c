package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	container "github.com/golobby/container/v3"

	"github.com/matchcore/core/cmd/rest-api/routing"
	mmapp "github.com/matchcore/core/pkg/app/matchmaking"
	ioc "github.com/matchcore/core/pkg/infra/ioc"
	socket "github.com/matchcore/core/pkg/infra/websocket"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	builder := ioc.NewContainerBuilder().WithEnvFile()
	c := builder.Container

	wireSteps := []func(container.Container) error{
		ioc.WithStorage,
		ioc.WithLockManager,
		ioc.WithQueueManager,
		ioc.WithSocketHub,
		ioc.WithNotificationTrigger,
		ioc.WithLobbyEngine,
		ioc.WithMatchmakingService,
	}
	for _, wire := range wireSteps {
		if err := wire(c); err != nil {
			slog.ErrorContext(ctx, "failed to wire container", "error", err)
			panic(err)
		}
	}

	// Start the SocketHub event loop
	var hub *socket.SocketHub
	if err := c.Resolve(&hub); err != nil {
		slog.ErrorContext(ctx, "Failed to resolve SocketHub", "error", err)
		panic(err)
	}
	go hub.Run(ctx)
	slog.InfoContext(ctx, "socket hub started")

	// Start the matchmaking scheduler loop
	var matchmakingService *mmapp.MatchmakingService
	if err := c.Resolve(&matchmakingService); err != nil {
		slog.ErrorContext(ctx, "Failed to resolve MatchmakingService", "error", err)
		panic(err)
	}
	if restored, err := matchmakingService.RebuildQueueIndex(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to rebuild matchmaking queue index", "error", err)
	} else {
		slog.InfoContext(ctx, "matchmaking queue index rebuilt", "restored", restored)
	}
	go matchmakingService.Run(ctx)
	slog.InfoContext(ctx, "matchmaking scheduler started")

	router := routing.NewRouter(ctx, c)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.InfoContext(ctx, "Starting server on port "+port)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handler for Kubernetes SIGTERM
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-shutdownChan
		slog.InfoContext(ctx, "Received shutdown signal", "signal", sig.String())

		// Give Kubernetes time to update endpoints
		slog.InfoContext(ctx, "Waiting for Kubernetes endpoint update...")
		time.Sleep(5 * time.Second)

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		slog.InfoContext(ctx, "Shutting down server gracefully...")
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "Server shutdown error", "error", err)
		}

		// Cancel main context to stop background jobs
		cancel()
		slog.InfoContext(ctx, "Server shutdown complete")
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.ErrorContext(ctx, "Server error", "err", err)
		os.Exit(1)
	}
}
