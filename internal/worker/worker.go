// Package worker is the offline cache worker: it installs a manifest into a
// named cache generation, purges older generations on activation and answers
// requests cache-first with a landing-page fallback for navigations.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/tracker/internal/cachestore"
	"github.com/MrSnakeDoc/tracker/internal/logger"
	"github.com/MrSnakeDoc/tracker/internal/sources/manifest"
)

// ErrNotInstalled is returned by Activate before a successful Install.
var ErrNotInstalled = errors.New("worker is not installed")

// State is the lifecycle position of the worker.
type State int32

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options wires a worker.
type Options struct {
	Manifest manifest.Manifest
	Origin   *url.URL
	Caches   *cachestore.Caches
	Network  cachestore.Fetcher
	Log      logger.Logger
}

// Stats are cumulative request outcomes.
type Stats struct {
	CacheHits int64 `json:"cacheHits"`
	Network   int64 `json:"network"`
	Fallbacks int64 `json:"fallbacks"`
	Failures  int64 `json:"failures"`
}

// Worker owns one cache generation.
type Worker struct {
	manifest   manifest.Manifest
	origin     *url.URL
	generation string
	landing    string
	caches     *cachestore.Caches
	network    cachestore.Fetcher
	log        logger.Logger

	lifecycle sync.Mutex
	state     atomic.Int32
	claimed   atomic.Bool

	hits, fetched, fallbacks, failures atomic.Int64
}

// New validates options and returns a worker in the parsed state.
func New(opts Options) (*Worker, error) {
	if err := opts.Manifest.Validate(); err != nil {
		return nil, err
	}
	if opts.Origin == nil || !opts.Origin.IsAbs() {
		return nil, errors.New("worker: origin must be an absolute URL")
	}
	if opts.Caches == nil {
		return nil, errors.New("worker: caches are required")
	}
	if opts.Network == nil {
		opts.Network = http.DefaultClient
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	landing, err := opts.Manifest.LandingURL(opts.Origin)
	if err != nil {
		return nil, err
	}

	return &Worker{
		manifest:   opts.Manifest,
		origin:     opts.Origin,
		generation: opts.Manifest.Generation(),
		landing:    landing,
		caches:     opts.Caches,
		network:    opts.Network,
		log:        opts.Log,
	}, nil
}

// Generation returns the current cache generation name.
func (w *Worker) Generation() string { return w.generation }

// Origin returns the upstream asset origin.
func (w *Worker) Origin() *url.URL { return w.origin }

// State returns the lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

// Claimed reports whether the worker controls clients.
func (w *Worker) Claimed() bool { return w.claimed.Load() }

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	return Stats{
		CacheHits: w.hits.Load(),
		Network:   w.fetched.Load(),
		Fallbacks: w.fallbacks.Load(),
		Failures:  w.failures.Load(),
	}
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
	w.log.Debug("worker state", logger.String("state", s.String()), logger.String("generation", w.generation))
}

// Install opens the current generation and stores every manifest resource.
// Any failed resource fails the whole step and leaves the worker redundant.
func (w *Worker) Install(ctx context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	w.setState(StateInstalling)

	if err := w.install(ctx); err != nil {
		w.setState(StateRedundant)
		w.log.Error("install failed", logger.String("generation", w.generation), logger.Error(err))
		return err
	}

	w.setState(StateInstalled)
	w.log.Info("installed",
		logger.String("generation", w.generation),
		logger.Int("resources", len(w.manifest.Resources)))
	return nil
}

func (w *Worker) install(ctx context.Context) error {
	urls, err := w.manifest.ResolveResources(w.origin)
	if err != nil {
		return err
	}

	cache, err := w.caches.Open(ctx, w.generation)
	if err != nil {
		return err
	}
	if err := cache.AddAll(ctx, w.network, urls); err != nil {
		return fmt.Errorf("install %s: %w", w.generation, err)
	}
	return nil
}

// Activate deletes every generation except the current one, then claims clients.
func (w *Worker) Activate(ctx context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	switch w.State() {
	case StateInstalled, StateActivated:
	default:
		return fmt.Errorf("%w: state is %s", ErrNotInstalled, w.State())
	}

	w.setState(StateActivating)

	purged, err := w.Purge(ctx)
	if err != nil {
		w.setState(StateInstalled)
		return err
	}

	w.claimed.Store(true)
	w.setState(StateActivated)
	w.log.Info("activated",
		logger.String("generation", w.generation),
		logger.Strings("purged", purged))
	return nil
}

// Purge deletes every generation whose name differs from the current one.
func (w *Worker) Purge(ctx context.Context) ([]string, error) {
	names, err := w.caches.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}

	var purged []string
	for _, name := range names {
		if name == w.generation {
			continue
		}
		if _, err := w.caches.Delete(ctx, name); err != nil {
			return purged, fmt.Errorf("failed to delete cache %s: %w", name, err)
		}
		purged = append(purged, name)
	}
	return purged, nil
}

// Generations lists every cache generation currently stored.
func (w *Worker) Generations(ctx context.Context) ([]string, error) {
	return w.caches.Keys(ctx)
}

// Sweep purges stale generations once the worker is active. Before that
// the previous worker still owns its generation.
func (w *Worker) Sweep(ctx context.Context) ([]string, error) {
	if w.State() != StateActivated {
		return nil, nil
	}
	return w.Purge(ctx)
}

// Fetch answers req, which must target the origin with an absolute URL.
//
// Cache first. On a miss the network response is returned and a duplicate
// is stored. If the network fails, navigations get the cached landing page
// and every other request gets the network error.
func (w *Worker) Fetch(req *http.Request) (*http.Response, error) {
	if w.State() != StateActivated {
		return w.network.Do(req)
	}

	ctx := req.Context()
	cache, err := w.caches.Open(ctx, w.generation)
	if err != nil {
		w.log.Warn("cache unavailable, going to network", logger.Error(err))
		return w.network.Do(req)
	}

	cached, err := cache.Match(ctx, req)
	if err != nil {
		w.log.Warn("cache lookup failed", logger.String("url", req.URL.String()), logger.Error(err))
	}
	if cached != nil {
		w.hits.Add(1)
		return cached, nil
	}

	resp, netErr := w.network.Do(req)
	if netErr == nil {
		w.fetched.Add(1)
		if storable(req, resp) {
			if err := cache.Put(ctx, req, resp); err != nil {
				w.log.Warn("failed to cache response", logger.String("url", req.URL.String()), logger.Error(err))
			}
		}
		return resp, nil
	}

	if IsNavigation(req) {
		landing, err := cache.MatchURL(ctx, w.landing)
		if err == nil && landing != nil {
			w.fallbacks.Add(1)
			w.log.Debug("serving landing page offline", logger.String("url", req.URL.String()))
			return landing, nil
		}
	}

	w.failures.Add(1)
	return nil, netErr
}

// storable keeps error pages out of a generation that is never revalidated.
func storable(req *http.Request, resp *http.Response) bool {
	return req.Method == http.MethodGet &&
		resp.StatusCode >= 200 && resp.StatusCode <= 299 &&
		resp.StatusCode != http.StatusPartialContent
}

// IsNavigation reports whether req loads a page.
func IsNavigation(req *http.Request) bool {
	if mode := req.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return req.Method == http.MethodGet && strings.Contains(req.Header.Get("Accept"), "text/html")
}
