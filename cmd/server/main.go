package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/livewatch/internal/di"
	"github.com/reshetovitsme/livewatch/internal/engine"
	channelService "github.com/reshetovitsme/livewatch/internal/modules/channel/service"
	notifyService "github.com/reshetovitsme/livewatch/internal/modules/notify/service"
	"github.com/reshetovitsme/livewatch/internal/modules/poller"
	"github.com/reshetovitsme/livewatch/internal/shared/config"
	httpServer "github.com/reshetovitsme/livewatch/internal/transport/http"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Setup structured logging with multiple handlers using slog-multi
	level := new(slog.LevelVar)
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	// Use Fanout to send logs to both handlers
	multiHandler := slogmulti.Fanout(textHandler, jsonHandler)
	logger := slog.New(multiHandler)
	slog.SetDefault(logger)

	if err := run(logger, level); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, level *slog.LevelVar) error {
	// Setup dependency injection
	injector, err := di.Setup(logger)
	if err != nil {
		return err
	}

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return err
	}
	level.Set(cfg.SlogLevel())

	// Get services from DI container
	loop := do.MustInvoke[*engine.Loop](injector)
	dispatcher := do.MustInvoke[*notifyService.Dispatcher](injector)
	scheduler := do.MustInvoke[*poller.Scheduler](injector)
	channelService := do.MustInvoke[*channelService.Service](injector)
	server := do.MustInvoke[*httpServer.Server](injector)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := di.Shutdown(ctx, injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error { return dispatcher.Run(ctx) })

	// Favourites must be in the registry before the first poll
	if err := channelService.Start(ctx); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	g.Go(func() error { return scheduler.Run(ctx) })
	g.Go(func() error { return channelService.Run(ctx) })

	// Start HTTP server. It keeps serving until the deferred di.Shutdown,
	// so it runs outside the group; a failed listen stops everything else.
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
			cancel()
		}
	}()

	if cfg.TelegramEnabled() {
		b := do.MustInvoke[*bot.Bot](injector)
		g.Go(func() error {
			b.Start(ctx)
			return nil
		})
		slog.Info("Telegram bot started")
	} else {
		slog.Info("Telegram bot disabled, no token configured")
	}

	slog.Info("Application started", "port", cfg.HTTPPort, "env", cfg.AppEnv, "favourites_backend", cfg.FavouritesBackend)
	slog.Info("Press Ctrl+C to stop")

	err = g.Wait()
	select {
	case startErr := <-serverErr:
		err = errors.Join(err, startErr)
	default:
	}
	slog.Info("Shutting down...")
	return err
}
