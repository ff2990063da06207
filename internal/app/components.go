package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tracker/internal/cachestore"
	"github.com/MrSnakeDoc/tracker/internal/channel"
	"github.com/MrSnakeDoc/tracker/internal/config"
	"github.com/MrSnakeDoc/tracker/internal/controller"
	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/kv"
	"github.com/MrSnakeDoc/tracker/internal/logger"
	"github.com/MrSnakeDoc/tracker/internal/objectdb"
	"github.com/MrSnakeDoc/tracker/internal/redis"
	"github.com/MrSnakeDoc/tracker/internal/scheduler"
	"github.com/MrSnakeDoc/tracker/internal/sources/jokeapi"
	"github.com/MrSnakeDoc/tracker/internal/sources/manifest"
	"github.com/MrSnakeDoc/tracker/internal/store/local"
	redisstore "github.com/MrSnakeDoc/tracker/internal/store/redis"
	"github.com/MrSnakeDoc/tracker/internal/worker"
)

// Components holds everything the server and the CLI subcommands share.
// Redis is optional: without it every backend lives in this process.
type Components struct {
	Config *config.Config
	Logger logger.Logger

	Redis   *goredis.Client // nil without TRACKER_REDIS_ADDR
	Storage kv.Storage
	Caches  *cachestore.Caches
	Strays  scheduler.StrayCleaner // nil without Redis
	Broker  channel.Broker

	JokesDB *objectdb.DB
	SyncDB  *objectdb.DB
}

// Connect builds the backends. Databases are opened lazily by OpenJokes/OpenSync.
func Connect(ctx context.Context, cfg *config.Config, log logger.Logger) (*Components, error) {
	c := &Components{Config: cfg, Logger: log}

	if !cfg.UseRedis() {
		log.Info("no redis configured, using in-process backends")
		c.Storage = kv.NewMemoryStorage()
		c.Caches = cachestore.New(cachestore.NewMemoryBackend())
		c.Broker = channel.NewMemoryBroker(cfg.ChannelBuffer, log.Named("channel"))
		return c, nil
	}

	client, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store := redisstore.NewStore(client)
	c.Redis = client
	c.Storage = kv.NewRedisStorage(client)
	c.Caches = cachestore.New(store)
	c.Strays = store
	c.Broker = channel.NewRedisBroker(client, log.Named("channel"))
	return c, nil
}

// OpenJokes opens (or returns) the joke database.
func (c *Components) OpenJokes(ctx context.Context) (*objectdb.DB, error) {
	if c.JokesDB != nil {
		return c.JokesDB, nil
	}
	db, err := local.OpenJokes(ctx, c.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.Config.JokesDBName, err)
	}
	c.JokesDB = db
	return db, nil
}

// OpenSync opens (or returns) the background sync database.
func (c *Components) OpenSync(ctx context.Context) (*objectdb.DB, error) {
	if c.SyncDB != nil {
		return c.SyncDB, nil
	}
	db, err := local.OpenSync(ctx, c.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.Config.SyncDBName, err)
	}
	c.SyncDB = db
	return db, nil
}

// Worker loads the manifest and builds the offline cache worker.
func (c *Components) Worker() (*worker.Worker, error) {
	m, err := manifest.NewLoader(c.Config.ManifestFile).Load()
	if err != nil {
		return nil, err
	}
	origin, err := url.Parse(c.Config.OriginURL)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", c.Config.OriginURL, err)
	}
	return worker.New(worker.Options{
		Manifest: m,
		Origin:   origin,
		Caches:   c.Caches,
		Network:  &http.Client{Timeout: c.Config.FetchTimeout},
		Log:      c.Logger.Named("worker"),
	})
}

// Vacations builds the vacation controller on the simple store.
func (c *Components) Vacations() *controller.Vacations {
	return controller.NewVacations(
		c.Storage,
		c.Config.StorageKey,
		domain.NewDateFormatter(c.Config.Locale),
		c.Logger.Named("vacations"),
	)
}

// JokeSync builds the fetch-store-notify cycle on its own channel endpoint.
func (c *Components) JokeSync(ctx context.Context) (*scheduler.JokeSync, error) {
	db, err := c.OpenJokes(ctx)
	if err != nil {
		return nil, err
	}
	ch, err := c.Broker.Open(ctx, c.Config.ChannelName)
	if err != nil {
		return nil, fmt.Errorf("failed to open channel %s: %w", c.Config.ChannelName, err)
	}
	return scheduler.NewJokeSync(
		jokeapi.NewClient(c.Config.JokesURL, nil, c.Config.FetchTimeout),
		local.NewJokes(db),
		ch,
		c.Logger.Named("joke-sync"),
		c.Config.JokeSyncInterval,
	), nil
}

// BackgroundSync builds the pending data syncer.
func (c *Components) BackgroundSync(ctx context.Context) (*scheduler.BackgroundSync, *local.Pending, error) {
	db, err := c.OpenSync(ctx)
	if err != nil {
		return nil, nil, err
	}
	pending := local.NewPending(db)
	bs := scheduler.NewBackgroundSync(
		pending,
		&http.Client{Timeout: c.Config.FetchTimeout},
		c.Config.SyncURL,
		c.Logger.Named("background-sync"),
		c.Config.SyncInterval,
	)
	return bs, pending, nil
}

// Close releases databases, the broker and the redis client.
func (c *Components) Close() {
	for _, db := range []*objectdb.DB{c.JokesDB, c.SyncDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil {
			c.Logger.Warn("failed to close database", logger.String("name", db.Name()), logger.Error(err))
		}
	}
	if c.Broker != nil {
		_ = c.Broker.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warnf("failed to close redis: %v", err)
		} else {
			c.Logger.Info("✅ Redis closed cleanly")
		}
	}
}
