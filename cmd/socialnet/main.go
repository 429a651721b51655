package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/socialnet/internal/application"
	"github.com/JonMunkholm/socialnet/internal/config"
	"github.com/JonMunkholm/socialnet/internal/core"
	"github.com/JonMunkholm/socialnet/internal/logging"
	"github.com/JonMunkholm/socialnet/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envErr := godotenv.Overload()

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.AddSource)
	if envErr != nil {
		slog.Debug("no .env file found, using environment variables")
	} else {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the store; migrations run on open
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		return 1
	}
	defer st.Close()

	service, err := core.NewService(st, cfg.Load)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		return 1
	}

	slog.Debug("store opened",
		"driver", cfg.Database.Driver,
		"chunk_size", service.ChunkSize(),
		"max_feed_size", cfg.Load.MaxFeedSize,
	)

	root := application.NewRootCommand(service, os.Stdin, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}
