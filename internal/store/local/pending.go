package local

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/objectdb"
)

// Pending is the queue of data waiting for background sync.
type Pending struct {
	db *objectdb.DB
}

// NewPending wraps an open sync database.
func NewPending(db *objectdb.DB) *Pending {
	return &Pending{db: db}
}

// Add queues an item and returns its generated id.
func (p *Pending) Add(ctx context.Context, item domain.PendingItem) (int64, error) {
	var id int64
	err := p.db.Update(ctx, func(tx *objectdb.Tx) error {
		s, err := tx.Store(PendingStore)
		if err != nil {
			return err
		}
		item.ID = 0
		id, err = s.Add(item)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to queue pending data: %w", err)
	}
	return id, nil
}

// List returns queued items, oldest first.
func (p *Pending) List(ctx context.Context) ([]domain.PendingItem, error) {
	var items []domain.PendingItem
	err := p.db.View(ctx, func(tx *objectdb.Tx) error {
		s, err := tx.Store(PendingStore)
		if err != nil {
			return err
		}
		items, err = objectdb.GetAll[domain.PendingItem](s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending data: %w", err)
	}
	return items, nil
}

// Delete removes a delivered item.
func (p *Pending) Delete(ctx context.Context, id int64) error {
	return p.db.Update(ctx, func(tx *objectdb.Tx) error {
		s, err := tx.Store(PendingStore)
		if err != nil {
			return err
		}
		return s.Delete(id)
	})
}
