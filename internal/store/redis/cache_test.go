package redis

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/tracker/internal/cachestore"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestStoreBacksCacheGenerations(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<h1>home</h1>")
	})
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "app()")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	caches := cachestore.New(store)
	cache, err := caches.Open(ctx, "vacation-tracker-v1")
	require.NoError(t, err)
	require.NoError(t, cache.AddAll(ctx, srv.Client(), []string{srv.URL + "/index.html", srv.URL + "/app.js"}))

	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/app.js", srv.URL + "/index.html"}, keys)
	assert.True(t, mr.Exists(GenerationKey("vacation-tracker-v1")))

	resp, err := cache.MatchURL(ctx, srv.URL+"/index.html")
	require.NoError(t, err)
	require.NotNil(t, resp)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<h1>home</h1>", string(body))
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))

	miss, err := cache.MatchURL(ctx, srv.URL+"/missing.css")
	require.NoError(t, err)
	assert.Nil(t, miss)

	_, err = caches.Open(ctx, "vacation-tracker-v2")
	require.NoError(t, err)
	names, err := caches.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vacation-tracker-v1", "vacation-tracker-v2"}, names)

	deleted, err := caches.Delete(ctx, "vacation-tracker-v1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists(GenerationKey("vacation-tracker-v1")))

	deleted, err = caches.Delete(ctx, "vacation-tracker-v1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStrayGenerations(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutEntries(ctx, "joke-tracker-v2", []*cachestore.Entry{{URL: "http://origin.test/", Status: http.StatusOK}}))
	// a hash whose set member was removed before the DEL ran
	mr.HSet(GenerationKey("joke-tracker-v1"), "http://origin.test/", "{}")

	stray, err := store.StrayGenerations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"joke-tracker-v1"}, stray)

	require.NoError(t, store.DropStray(ctx, "joke-tracker-v1"))
	stray, err = store.StrayGenerations(ctx)
	require.NoError(t, err)
	assert.Empty(t, stray)

	ok, err := store.HasGeneration(ctx, "joke-tracker-v2")
	require.NoError(t, err)
	assert.True(t, ok)
}
