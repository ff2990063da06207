package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// ErrEmptyData is returned when submitting blank data.
var ErrEmptyData = errors.New("data is required")

// PendingStore queues data for background sync.
type PendingStore interface {
	Add(ctx context.Context, item domain.PendingItem) (int64, error)
}

// SyncRegistrar schedules a background sync by tag.
type SyncRegistrar interface {
	Register(tag string) error
}

// Flusher sends everything queued right away.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// SubmitResult tells the caller what happened to the submitted data.
type SubmitResult struct {
	ID         int64 `json:"id"`
	Registered bool  `json:"registered"` // a background sync will deliver it
	Sent       int   `json:"sent"`       // items delivered right away
}

// Pending queues data and hands it to background sync.
type Pending struct {
	store    PendingStore
	registry SyncRegistrar
	flusher  Flusher
	log      logger.Logger
	now      func() time.Time
}

// NewPending creates the controller. With a nil registry background sync is
// unavailable and Submit flushes immediately through flusher.
func NewPending(store PendingStore, registry SyncRegistrar, flusher Flusher, log logger.Logger) *Pending {
	return &Pending{store: store, registry: registry, flusher: flusher, log: log, now: time.Now}
}

// Submit stores data and registers the "send-data" sync.
func (p *Pending) Submit(ctx context.Context, data string) (SubmitResult, error) {
	if strings.TrimSpace(data) == "" {
		return SubmitResult{}, ErrEmptyData
	}

	id, err := p.store.Add(ctx, domain.PendingItem{Data: data, CreatedAt: p.now().UTC()})
	if err != nil {
		return SubmitResult{}, err
	}
	res := SubmitResult{ID: id}

	if p.registry != nil {
		if err := p.registry.Register(domain.SyncTagSendData); err != nil {
			return res, fmt.Errorf("failed to register sync: %w", err)
		}
		res.Registered = true
		p.log.Info("background sync registered", logger.Int64("id", id))
		return res, nil
	}

	if p.flusher == nil {
		return res, nil
	}
	sent, err := p.flusher.Flush(ctx)
	res.Sent = sent
	if err != nil {
		return res, fmt.Errorf("failed to send data: %w", err)
	}
	return res, nil
}
