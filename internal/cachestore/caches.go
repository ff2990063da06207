package cachestore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Fetcher performs network requests. *http.Client satisfies it.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Caches is the set of generations visible to one origin.
type Caches struct {
	backend Backend
	now     func() time.Time
}

// New returns the cache set over backend.
func New(backend Backend) *Caches {
	return &Caches{backend: backend, now: time.Now}
}

// Open returns the named generation, creating it if needed.
func (c *Caches) Open(ctx context.Context, name string) (*Cache, error) {
	if err := c.backend.CreateGeneration(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	return &Cache{name: name, caches: c}, nil
}

// Has reports whether the generation exists.
func (c *Caches) Has(ctx context.Context, name string) (bool, error) {
	return c.backend.HasGeneration(ctx, name)
}

// Keys lists generation names, sorted.
func (c *Caches) Keys(ctx context.Context) ([]string, error) {
	return c.backend.Generations(ctx)
}

// Delete drops a generation and reports whether it existed.
func (c *Caches) Delete(ctx context.Context, name string) (bool, error) {
	return c.backend.DeleteGeneration(ctx, name)
}

// Cache is one generation.
type Cache struct {
	name   string
	caches *Caches
}

// Name returns the generation name.
func (c *Cache) Name() string { return c.name }

// Match returns a fresh response for req, or nil on a miss. Only GET
// requests can match.
func (c *Cache) Match(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return nil, nil
	}
	e, err := c.caches.backend.GetEntry(ctx, c.name, Key(req))
	if err != nil {
		return nil, fmt.Errorf("failed to match %s in %s: %w", Key(req), c.name, err)
	}
	if e == nil {
		return nil, nil
	}
	return e.Response(req), nil
}

// MatchURL looks up an absolute URL.
func (c *Cache) MatchURL(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	return c.Match(ctx, req)
}

// Keys lists the stored URLs, sorted.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	return c.caches.backend.EntryKeys(ctx, c.name)
}

// Put stores a duplicate of resp under req. resp keeps an unread body so the
// caller can still deliver it.
func (c *Cache) Put(ctx context.Context, req *http.Request, resp *http.Response) error {
	if req.Method != http.MethodGet {
		return ErrNotCacheable
	}
	if resp.StatusCode == http.StatusPartialContent {
		return ErrPartialContent
	}
	e, err := capture(Key(req), resp, c.caches.now())
	if err != nil {
		return err
	}
	if err := c.caches.backend.PutEntries(ctx, c.name, []*Entry{e}); err != nil {
		return fmt.Errorf("failed to put %s in %s: %w", e.URL, c.name, err)
	}
	return nil
}

// AddAll fetches every URL and stores the responses. Nothing is stored
// unless every fetch answered 2xx.
func (c *Cache) AddAll(ctx context.Context, fetcher Fetcher, urls []string) error {
	entries := make([]*Entry, 0, len(urls))
	for _, raw := range urls {
		e, err := c.fetchEntry(ctx, fetcher, raw)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}

	if err := c.caches.backend.PutEntries(ctx, c.name, entries); err != nil {
		return fmt.Errorf("failed to store %d resources in %s: %w", len(entries), c.name, err)
	}
	return nil
}

func (c *Cache) fetchEntry(ctx context.Context, fetcher Fetcher, raw string) (*Entry, error) {
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("invalid resource url %q: %w", raw, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid resource url %q: %w", raw, err)
	}

	resp, err := fetcher.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", raw, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s answered %d", ErrBadStatus, raw, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusPartialContent {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrPartialContent, raw)
	}

	return capture(Key(req), resp, c.caches.now())
}
