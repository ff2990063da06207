package cachestore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func origin(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<h1>home</h1>")
	})
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "console.log(1)")
	})
	mux.HandleFunc("/partial", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAddAllStoresEveryResource(t *testing.T) {
	srv := origin(t)
	ctx := context.Background()
	caches := New(NewMemoryBackend())

	c, err := caches.Open(ctx, "vacation-tracker-v2")
	require.NoError(t, err)
	require.NoError(t, c.AddAll(ctx, srv.Client(), []string{srv.URL + "/index.html", srv.URL + "/app.js"}))

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/app.js", srv.URL + "/index.html"}, keys)

	resp, err := c.MatchURL(ctx, srv.URL+"/index.html")
	require.NoError(t, err)
	require.NotNil(t, resp)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<h1>home</h1>", string(body))
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
}

func TestAddAllIsAllOrNothing(t *testing.T) {
	srv := origin(t)
	ctx := context.Background()
	caches := New(NewMemoryBackend())
	c, err := caches.Open(ctx, "v1")
	require.NoError(t, err)

	err = c.AddAll(ctx, srv.Client(), []string{srv.URL + "/index.html", srv.URL + "/missing.css"})
	assert.ErrorIs(t, err, ErrBadStatus)

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPutKeepsCallerBodyReadable(t *testing.T) {
	srv := origin(t)
	ctx := context.Background()
	c, err := New(NewMemoryBackend()).Open(ctx, "v1")
	require.NoError(t, err)

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/app.js#frag", nil)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, req, resp))

	live, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "console.log(1)", string(live))

	cached, err := c.MatchURL(ctx, srv.URL+"/app.js")
	require.NoError(t, err)
	require.NotNil(t, cached)
	stored, _ := io.ReadAll(cached.Body)
	assert.Equal(t, "console.log(1)", string(stored))
}

func TestPutBrokenBodyStaysReadable(t *testing.T) {
	ctx := context.Background()
	cache, err := New(NewMemoryBackend()).Open(ctx, "v1")
	require.NoError(t, err)

	reset := errors.New("connection reset")
	req := httptest.NewRequest(http.MethodGet, "http://origin.test/app.js", nil)
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(io.MultiReader(strings.NewReader("cons"), errReader{reset})),
	}

	require.ErrorIs(t, cache.Put(ctx, req, resp), reset)

	body, err := io.ReadAll(resp.Body)
	assert.Equal(t, "cons", string(body))
	assert.ErrorIs(t, err, reset)

	got, err := cache.Match(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, got)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestPutRejectsUncacheable(t *testing.T) {
	ctx := context.Background()
	c, err := New(NewMemoryBackend()).Open(ctx, "v1")
	require.NoError(t, err)

	post, _ := http.NewRequest(http.MethodPost, "http://origin/api", nil)
	assert.ErrorIs(t, c.Put(ctx, post, &http.Response{StatusCode: 200, Body: http.NoBody}), ErrNotCacheable)

	get, _ := http.NewRequest(http.MethodGet, "http://origin/video", nil)
	assert.ErrorIs(t, c.Put(ctx, get, &http.Response{StatusCode: http.StatusPartialContent, Body: http.NoBody}), ErrPartialContent)

	resp, err := c.Match(ctx, get)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestMatchIgnoresNonGet(t *testing.T) {
	ctx := context.Background()
	c, err := New(NewMemoryBackend()).Open(ctx, "v1")
	require.NoError(t, err)

	get, _ := http.NewRequest(http.MethodGet, "http://origin/a", nil)
	require.NoError(t, c.Put(ctx, get, &http.Response{StatusCode: 200, Body: http.NoBody}))

	head, _ := http.NewRequest(http.MethodHead, "http://origin/a", nil)
	resp, err := c.Match(ctx, head)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestCachesLifecycle(t *testing.T) {
	ctx := context.Background()
	caches := New(NewMemoryBackend())

	for _, name := range []string{"vacation-tracker-v1", "vacation-tracker-v2"} {
		_, err := caches.Open(ctx, name)
		require.NoError(t, err)
	}

	keys, err := caches.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vacation-tracker-v1", "vacation-tracker-v2"}, keys)

	deleted, err := caches.Delete(ctx, "vacation-tracker-v1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = caches.Delete(ctx, "vacation-tracker-v1")
	require.NoError(t, err)
	assert.False(t, deleted)

	has, err := caches.Has(ctx, "vacation-tracker-v2")
	require.NoError(t, err)
	assert.True(t, has)
}
