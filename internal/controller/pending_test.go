package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPending struct {
	items []domain.PendingItem
}

func (m *memoryPending) Add(_ context.Context, item domain.PendingItem) (int64, error) {
	item.ID = int64(len(m.items) + 1)
	m.items = append(m.items, item)
	return item.ID, nil
}

type registrar struct{ tags []string }

func (r *registrar) Register(tag string) error {
	r.tags = append(r.tags, tag)
	return nil
}

type flusher struct {
	sent int
	err  error
}

func (f *flusher) Flush(context.Context) (int, error) { return f.sent, f.err }

func TestPendingRegistersSync(t *testing.T) {
	store := &memoryPending{}
	reg := &registrar{}
	c := NewPending(store, reg, nil, logger.Nop())

	res, err := c.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, SubmitResult{ID: 1, Registered: true}, res)
	assert.Equal(t, []string{domain.SyncTagSendData}, reg.tags)
	assert.Len(t, store.items, 1)
}

func TestPendingWithoutBackgroundSyncSendsNow(t *testing.T) {
	c := NewPending(&memoryPending{}, nil, &flusher{sent: 1}, logger.Nop())

	res, err := c.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, res.Registered)
	assert.Equal(t, 1, res.Sent)

	failing := NewPending(&memoryPending{}, nil, &flusher{err: errors.New("offline")}, logger.Nop())
	_, err = failing.Submit(context.Background(), "hello")
	assert.Error(t, err)
}

func TestPendingRejectsBlank(t *testing.T) {
	store := &memoryPending{}
	c := NewPending(store, &registrar{}, nil, logger.Nop())

	_, err := c.Submit(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyData)
	assert.Empty(t, store.items)
}
