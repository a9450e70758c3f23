package di

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/livewatch/internal/engine"
	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/registry"
	channelRepo "github.com/reshetovitsme/livewatch/internal/modules/channel/repository"
	channelService "github.com/reshetovitsme/livewatch/internal/modules/channel/service"
	feedService "github.com/reshetovitsme/livewatch/internal/modules/feed/service"
	notifyService "github.com/reshetovitsme/livewatch/internal/modules/notify/service"
	"github.com/reshetovitsme/livewatch/internal/modules/poller"
	userRepo "github.com/reshetovitsme/livewatch/internal/modules/user/repository"
	userService "github.com/reshetovitsme/livewatch/internal/modules/user/service"
	"github.com/reshetovitsme/livewatch/internal/modules/view"
	vodService "github.com/reshetovitsme/livewatch/internal/modules/vod/service"
	"github.com/reshetovitsme/livewatch/internal/shared/cache"
	"github.com/reshetovitsme/livewatch/internal/shared/config"
	httpServer "github.com/reshetovitsme/livewatch/internal/transport/http"
	telegramHandler "github.com/reshetovitsme/livewatch/internal/transport/telegram"
	"github.com/reshetovitsme/livewatch/internal/transport/twitch"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container
func Setup(logger *slog.Logger) (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	do.Provide(injector, func(i do.Injector) (*slog.Logger, error) {
		return logger, nil
	})

	// Register control loop, registry and views
	do.Provide(injector, func(i do.Injector) (*engine.Loop, error) {
		return engine.NewLoop(0, do.MustInvoke[*slog.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*registry.Registry, error) {
		cfg := do.MustInvoke[*config.Config](i)
		reg, err := registry.New(cfg.RegistryCapacity, do.MustInvoke[*slog.Logger](i))
		if err != nil {
			return nil, oops.With("capacity", cfg.RegistryCapacity, "context", "failed to create registry").Wrap(err)
		}
		return reg, nil
	})

	do.Provide(injector, func(i do.Injector) (*view.Hub, error) {
		return view.NewHub(do.MustInvoke[*registry.Registry](i)), nil
	})

	// Register Redis, only resolved when redis_url is set
	do.Provide(injector, func(i do.Injector) (*cache.Redis, error) {
		cfg := do.MustInvoke[*config.Config](i)
		r, err := cache.New(cfg.RedisURL)
		if err != nil {
			return nil, oops.With("context", "failed to connect to redis").Wrap(err)
		}
		return r, nil
	})

	// Register remote API client
	do.Provide(injector, func(i do.Injector) (*twitch.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return twitch.NewClient(twitch.Config{
			BaseURL:  cfg.APIBaseURL,
			ClientID: cfg.APIClientID,
			Token:    cfg.APIToken,
			Timeout:  cfg.BatchTimeout,
		}, do.MustInvoke[*slog.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (twitch.Directory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client := do.MustInvoke[*twitch.Client](i)
		if cfg.RedisURL == "" {
			return client, nil
		}
		r, err := do.Invoke[*cache.Redis](i)
		if err != nil {
			return nil, err
		}
		return twitch.NewCachedDirectory(client, r, cfg.SearchCacheTTL, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Favourites Repository
	do.Provide(injector, func(i do.Injector) (channelRepo.FavouriteRepository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.FavouritesBackend {
		case channelDomain.FavouritesBackendRedis:
			r, err := do.Invoke[*cache.Redis](i)
			if err != nil {
				return nil, err
			}
			return channelRepo.NewRedisStorage(r), nil
		case channelDomain.FavouritesBackendPostgres:
			repo, err := channelRepo.NewPostgresStorage(context.Background(), cfg.DatabaseURL)
			if err != nil {
				return nil, oops.With("context", "failed to initialize postgres favourites").Wrap(err)
			}
			return repo, nil
		default:
			repo, err := channelRepo.NewFileStorage(cfg.StoragePath)
			if err != nil {
				return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize channel repository").Wrap(err)
			}
			return repo, nil
		}
	})

	// Register User Repository
	do.Provide(injector, func(i do.Injector) (userRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := userRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize user repository").Wrap(err)
		}
		return repo, nil
	})

	// Register notification pipeline
	do.Provide(injector, func(i do.Injector) (*notifyService.Queue, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return notifyService.NewQueue(cfg.NotificationBuffer, do.MustInvoke[*slog.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*notifyService.Detector, error) {
		return notifyService.NewDetector(
			do.MustInvoke[*registry.Registry](i),
			do.MustInvoke[*notifyService.Queue](i),
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*notifyService.Dispatcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*slog.Logger](i)

		deliverers := []notifyService.Deliverer{
			notifyService.NewLogDeliverer(logger),
			do.MustInvoke[*feedService.Service](i),
		}
		if cfg.TelegramEnabled() {
			b, err := do.Invoke[*bot.Bot](i)
			if err != nil {
				return nil, err
			}
			users := do.MustInvoke[*userService.Service](i)
			deliverers = append(deliverers, telegramHandler.NewNotifier(b, users, cfg.PublicURL, logger))
		}
		return notifyService.NewDispatcher(do.MustInvoke[*notifyService.Queue](i), logger, deliverers...), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return feedService.New(cfg.FeedHistory), nil
	})

	// Register User Service
	do.Provide(injector, func(i do.Injector) (*userService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[userRepo.Repository](i)
		return userService.New(repo, cfg.AllowedUsers), nil
	})

	// Register Poller
	do.Provide(injector, func(i do.Injector) (*poller.Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return poller.NewScheduler(
			do.MustInvoke[*twitch.Client](i),
			do.MustInvoke[*registry.Registry](i),
			do.MustInvoke[*notifyService.Detector](i),
			do.MustInvoke[*engine.Loop](i),
			poller.Config{
				Interval:     cfg.PollInterval,
				BatchSize:    cfg.BatchSize,
				BatchTimeout: cfg.BatchTimeout,
			},
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	// Register Channel Service
	do.Provide(injector, func(i do.Injector) (*channelService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return channelService.New(
			do.MustInvoke[*engine.Loop](i),
			do.MustInvoke[*registry.Registry](i),
			do.MustInvoke[*view.Hub](i),
			do.MustInvoke[channelRepo.FavouriteRepository](i),
			do.MustInvoke[twitch.Directory](i),
			do.MustInvoke[*poller.Scheduler](i),
			cfg.DirectoryInterval,
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	// Register VOD Catalog
	do.Provide(injector, func(i do.Injector) (*vodService.Catalog, error) {
		return vodService.NewCatalog(do.MustInvoke[*twitch.Client](i), do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		return telegramHandler.New(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*channelService.Service](i),
			do.MustInvoke[*vodService.Catalog](i),
			do.MustInvoke[*userService.Service](i),
			do.MustInvoke[*poller.Scheduler](i),
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		return httpServer.New(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*channelService.Service](i),
			do.MustInvoke[*view.Hub](i),
			do.MustInvoke[*vodService.Catalog](i),
			do.MustInvoke[*feedService.Service](i),
			do.MustInvoke[*poller.Scheduler](i),
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	// Register Bot, only resolved when a token is configured
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
			bot.WithServerURL(cfg.TelegramAPIURL),
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		// Register bot commands
		handler.RegisterCommands(b)
		return b, nil
	})

	return injector, nil
}

// Shutdown releases the resources held by already resolved services
func Shutdown(ctx context.Context, injector do.Injector) error {
	var errs []error

	if server, err := do.Invoke[*httpServer.Server](injector); err == nil && server != nil {
		errs = append(errs, server.Shutdown(ctx))
	}

	if repo, err := do.Invoke[channelRepo.FavouriteRepository](injector); err == nil && repo != nil {
		errs = append(errs, repo.Close())
	}

	cfg, err := do.Invoke[*config.Config](injector)
	if err == nil && cfg.RedisURL != "" {
		if r, err := do.Invoke[*cache.Redis](injector); err == nil && r != nil {
			errs = append(errs, r.Close())
		}
	}

	return errors.Join(errs...)
}
