package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	container "github.com/golobby/container/v3"

	mmapp "github.com/matchcore/core/pkg/app/matchmaking"
	ioc "github.com/matchcore/core/pkg/infra/ioc"
)

// Admin CLI for one-off operational tasks against an already-running
// deployment. Demo data loading lives in its own binary, cmd/cli/seed,
// since it owns a large fixture set that would otherwise crowd this file;
// everything here is a point-in-time call into the same wiring main.go
// uses.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()
	cmd := os.Args[1]

	switch cmd {
	case "rebuild-queue-index":
		runRebuildQueueIndex(ctx)
	case "expire-sweep":
		runExpirySweep(ctx)
	case "seed":
		fmt.Println("run: go run ./cmd/cli/seed")
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: cli <command>")
	fmt.Println("commands:")
	fmt.Println("  rebuild-queue-index   replay persisted searching requests into QueueManager")
	fmt.Println("  expire-sweep          run one relaxation sweep immediately (does not expire requests)")
	fmt.Println("  seed                  load demo users (see cmd/cli/seed)")
}

func buildContainer(ctx context.Context) container.Container {
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

	return c
}

func runRebuildQueueIndex(ctx context.Context) {
	c := buildContainer(ctx)

	var svc *mmapp.MatchmakingService
	if err := c.Resolve(&svc); err != nil {
		slog.ErrorContext(ctx, "failed to resolve MatchmakingService", "error", err)
		os.Exit(1)
	}

	restored, err := svc.RebuildQueueIndex(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "rebuild-queue-index failed", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "rebuild-queue-index complete", "restored", restored)
}

func runExpirySweep(ctx context.Context) {
	c := buildContainer(ctx)

	var svc *mmapp.MatchmakingService
	if err := c.Resolve(&svc); err != nil {
		slog.ErrorContext(ctx, "failed to resolve MatchmakingService", "error", err)
		os.Exit(1)
	}

	svc.RunExpirySweep(ctx)
	slog.InfoContext(ctx, "expire-sweep complete")
}
