package app

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/channel"
	"github.com/MrSnakeDoc/tracker/internal/config"
	"github.com/MrSnakeDoc/tracker/internal/controller"
	"github.com/MrSnakeDoc/tracker/internal/httpserver"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/logger"
	"github.com/MrSnakeDoc/tracker/internal/objectdb"
	"github.com/MrSnakeDoc/tracker/internal/scheduler"
	"github.com/MrSnakeDoc/tracker/internal/store/local"
	"github.com/MrSnakeDoc/tracker/internal/version"
	"github.com/MrSnakeDoc/tracker/internal/worker"
)

type App struct {
	cfg        *config.Config
	logger     logger.Logger
	components *Components
	server     *httpserver.Server
	worker     *worker.Worker
	jokeSync   *scheduler.JokeSync
	bgSync     *scheduler.BackgroundSync
	janitor    *scheduler.CacheJanitor
	jokes      *controller.Jokes
	pageCh     channel.Channel
}

// New wires the server: worker side (cache worker, joke sync, background
// sync, janitor) and page side (controllers) over one channel name.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c, err := Connect(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, c)
	if err != nil {
		c.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, c *Components) (*App, error) {
	cfg, loggerClient := c.Config, c.Logger

	w, err := c.Worker()
	if err != nil {
		return nil, err
	}

	jokesDB, err := c.OpenJokes(ctx)
	if err != nil {
		return nil, err
	}
	syncDB, err := c.OpenSync(ctx)
	if err != nil {
		return nil, err
	}

	jokeSync, err := c.JokeSync(ctx)
	if err != nil {
		return nil, err
	}
	bgSync, pendingStore, err := c.BackgroundSync(ctx)
	if err != nil {
		return nil, err
	}

	pageCh, err := c.Broker.Open(ctx, cfg.ChannelName)
	if err != nil {
		return nil, fmt.Errorf("failed to open channel %s: %w", cfg.ChannelName, err)
	}
	jokes := controller.NewJokes(local.NewJokes(jokesDB), pageCh, loggerClient.Named("jokes"))

	// Without a sync endpoint there is no background sync to register with;
	// submissions flush right away and report what happened.
	var registry controller.SyncRegistrar
	if cfg.SyncURL != "" {
		registry = bgSync
	}
	pending := controller.NewPending(pendingStore, registry, bgSync, loggerClient.Named("pending"))

	janitor := scheduler.NewCacheJanitor(w, c.Strays, loggerClient.Named("janitor"), cfg.JanitorInterval)

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		RequestTimeout: cfg.RequestTimeout,
		RateBurst:      cfg.RateLimitBurst,
		RatePerMin:     cfg.RateLimitPerMin,
		CORSOrigin:     cfg.CORSAllowedOrigin,
		Vacations:      c.Vacations(),
		Jokes:          jokes,
		Pending:        pending,
		Worker:         w,
		Broker:         c.Broker,
		ChannelName:    cfg.ChannelName,
		Databases:      []*objectdb.DB{jokesDB, syncDB},
		RedisClient:    c.Redis,
	}

	return &App{
		cfg:        cfg,
		logger:     loggerClient,
		components: c,
		server:     httpserver.New(cfg, loggerClient, d),
		worker:     w,
		jokeSync:   jokeSync,
		bgSync:     bgSync,
		janitor:    janitor,
		jokes:      jokes,
		pageCh:     pageCh,
	}, nil
}

// Run installs and activates the worker, starts the background loops and
// serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting tracker v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("tracker %s", version.String())
	defer a.components.Close()

	if err := a.worker.Install(ctx); err != nil {
		return fmt.Errorf("failed to install worker: %w", err)
	}
	if err := a.worker.Activate(ctx); err != nil {
		return fmt.Errorf("failed to activate worker: %w", err)
	}

	if err := a.jokeSync.Start(ctx); err != nil {
		return fmt.Errorf("failed to start joke sync: %w", err)
	}
	a.logger.Info("joke sync started",
		logger.String("channel", a.cfg.ChannelName),
		logger.Duration("interval", a.cfg.JokeSyncInterval))

	if err := a.bgSync.Start(ctx); err != nil {
		return fmt.Errorf("failed to start background sync: %w", err)
	}

	if err := a.janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cache janitor: %w", err)
	}
	a.logger.Info("cache janitor started",
		logger.Duration("interval", a.cfg.JanitorInterval))

	if err := a.jokes.Start(ctx); err != nil {
		return fmt.Errorf("failed to start jokes page: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.jokeSync.Stop()
	a.bgSync.Stop()
	a.janitor.Stop()
	_ = a.pageCh.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("✅ tracker stopped cleanly")
	return nil
}
