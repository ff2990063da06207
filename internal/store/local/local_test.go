package local

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/config"
	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestJokesUpsertByID(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := OpenJokes(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	jokes := NewJokes(db)

	require.NoError(t, jokes.SaveMany(ctx, []domain.Joke{
		{ID: 5, Setup: "old", Delivery: "d"},
		{ID: 0, Setup: "zero", Delivery: "d"},
	}))
	require.NoError(t, jokes.SaveMany(ctx, []domain.Joke{
		{ID: 5, Setup: "new", Delivery: "d"},
		{ID: 9, Setup: "nine", Delivery: "d"},
	}))

	all, err := jokes.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(0), all[0].ID)
	assert.Equal(t, "new", all[1].Setup)

	require.NoError(t, jokes.Delete(ctx, 5))
	n, err := jokes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPendingQueue(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := OpenSync(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	pending := NewPending(db)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	first, err := pending.Add(ctx, domain.PendingItem{Data: "a", CreatedAt: now})
	require.NoError(t, err)
	second, err := pending.Add(ctx, domain.PendingItem{ID: 99, Data: "b", CreatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, []int64{first, second})

	require.NoError(t, pending.Delete(ctx, first))

	items, err := pending.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.PendingItem{ID: 2, Data: "b", CreatedAt: now}, items[0])
}

func TestPageAndWorkerShareTheDatabase(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	workerDB, err := OpenJokes(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, NewJokes(workerDB).SaveMany(ctx, []domain.Joke{{ID: 1, Setup: "s"}}))
	require.NoError(t, workerDB.Close())

	pageDB, err := OpenJokes(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = pageDB.Close() }()

	all, err := NewJokes(pageDB).List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
