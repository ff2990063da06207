package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJokesURL is the remote batch source used by the joke tracker.
const DefaultJokesURL = "https://v2.jokeapi.dev/joke/Programming?blacklistFlags=nsfw,religious,political,racist,sexist,explicit&type=twopart&amount=5"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout on API routes

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Offline cache worker
	ManifestFile    string        // path to manifest.yaml (app, version, resources)
	OriginURL       string        // static asset origin the worker proxies (ex: http://localhost:8081)
	FetchTimeout    time.Duration // timeout for a single network fetch
	JanitorInterval time.Duration // interval to re-purge stale cache generations (0 = off)

	// Local stores
	DataDir        string        // directory holding embedded databases
	DBDriver       string        // "sqlite" (pure Go) | "sqlite3" (cgo)
	DBBusyTimeout  time.Duration // sqlite busy timeout across processes
	DBOpenTimeout  time.Duration // max wait for a blocked open/upgrade
	JokesDBName    string        // must match on page and worker side
	JokesDBVersion int
	SyncDBName     string
	SyncDBVersion  int
	StorageKey     string // key of the vacation list in the simple store
	Locale         string // BCP 47 tag used to format dates (ex: en-US)

	// Cross-context channel
	ChannelName   string // both contexts must use the identical name
	ChannelBuffer int    // per-listener inbox size for the in-process broker

	// Remote data + background sync
	JokesURL         string        // remote batch source
	JokeSyncInterval time.Duration // periodic refresh (0 = only on "fetch-jokes")
	SyncURL          string        // endpoint receiving pending data (empty = background sync unsupported)
	SyncInterval     time.Duration // periodic flush of pending data (0 = only on registration)

	// Redis (optional, empty address => in-process backends)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password when RedisAddr is set
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts      []string // optional, restrict access to specific Host headers
	AllowedCIDRS      []string // optional, restrict access to infra endpoints (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy        bool     // true => trust X-Forwarded-For headers
	RateLimitBurst    int      // burst for fetch triggers
	RateLimitPerMin   int      // refill per client IP per minute
	CORSAllowedOrigin string   // value of Access-Control-Allow-Origin ("" disables CORS headers)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("TRACKER_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("TRACKER_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("TRACKER_REQUEST_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  getenv("TRACKER_LOG_LEVEL", "info"),
		PrettyLog: mustBool("TRACKER_PRETTY_LOG", true),

		// Worker
		ManifestFile:    getenv("TRACKER_MANIFEST_FILE", "manifest.yaml"),
		OriginURL:       getenv("TRACKER_ORIGIN_URL", ""),
		FetchTimeout:    mustDuration("TRACKER_FETCH_TIMEOUT", 10*time.Second),
		JanitorInterval: mustDuration("TRACKER_JANITOR_INTERVAL", time.Hour),

		// Stores
		DataDir:        getenv("TRACKER_DATA_DIR", "data"),
		DBDriver:       getenv("TRACKER_DB_DRIVER", "sqlite"),
		DBBusyTimeout:  mustDuration("TRACKER_DB_BUSY_TIMEOUT", 5*time.Second),
		DBOpenTimeout:  mustDuration("TRACKER_DB_OPEN_TIMEOUT", 10*time.Second),
		JokesDBName:    getenv("TRACKER_JOKES_DB", "JokesDatabase"),
		JokesDBVersion: getenvInt("TRACKER_JOKES_DB_VERSION", 1),
		SyncDBName:     getenv("TRACKER_SYNC_DB", "SyncDatabase"),
		SyncDBVersion:  getenvInt("TRACKER_SYNC_DB_VERSION", 1),
		StorageKey:     getenv("TRACKER_STORAGE_KEY", "vaca_tracker"),
		Locale:         getenv("TRACKER_LOCALE", "en-US"),

		// Channel
		ChannelName:   getenv("TRACKER_CHANNEL", "sw_channel"),
		ChannelBuffer: getenvInt("TRACKER_CHANNEL_BUFFER", 64),

		// Remote data + background sync
		JokesURL:         getenv("TRACKER_JOKES_URL", DefaultJokesURL),
		JokeSyncInterval: mustDuration("TRACKER_JOKES_INTERVAL", 0),
		SyncURL:          getenv("TRACKER_SYNC_URL", ""),
		SyncInterval:     mustDuration("TRACKER_SYNC_INTERVAL", 0),

		// Redis settings
		RedisAddr:             getenv("TRACKER_REDIS_ADDR", ""),
		RedisUser:             getenv("TRACKER_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("TRACKER_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("TRACKER_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("TRACKER_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:      splitAndTrim(getenv("TRACKER_ALLOWED_HOSTS", "")),
		AllowedCIDRS:      parseAllowedIPs(getenv("TRACKER_ALLOWED_CIDRS", "")),
		TrustProxy:        mustBool("TRACKER_TRUST_PROXY", false),
		RateLimitBurst:    getenvInt("TRACKER_RATE_LIMIT_BURST", 5),
		RateLimitPerMin:   getenvInt("TRACKER_RATE_LIMIT_PER_MIN", 10),
		CORSAllowedOrigin: getenv("TRACKER_CORS_ORIGIN", ""),
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// UseRedis reports whether Redis backends replace the in-process ones.
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}

// Validate checks the settings needed to run the server.
// CLI subcommands that never touch the origin skip it.
func (c *Config) Validate() error {
	var errs []error

	if c.OriginURL == "" {
		errs = append(errs, errors.New("TRACKER_ORIGIN_URL is required"))
	} else if u, err := url.Parse(c.OriginURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("TRACKER_ORIGIN_URL %q is not an absolute URL", c.OriginURL))
	}

	switch c.DBDriver {
	case "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("TRACKER_DB_DRIVER must be sqlite or sqlite3, got %q", c.DBDriver))
	}

	if c.JokesDBVersion < 1 || c.SyncDBVersion < 1 {
		errs = append(errs, errors.New("database versions must be >= 1"))
	}

	if c.ChannelName == "" {
		errs = append(errs, errors.New("TRACKER_CHANNEL must not be empty"))
	}

	if c.UseRedis() && c.RedisPasswordRequired && c.RedisPassword == "" {
		errs = append(errs, errors.New("TRACKER_REDIS_PASSWORD is required when TRACKER_REDIS_PASSWORD_REQUIRED=true"))
	}

	return errors.Join(errs...)
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
