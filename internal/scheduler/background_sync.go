package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// ErrUnknownSyncTag is returned when registering a tag nobody handles
var ErrUnknownSyncTag = errors.New("unknown sync tag")

// ErrNoSyncEndpoint is returned by Flush when no sync URL is configured
var ErrNoSyncEndpoint = errors.New("no sync endpoint configured")

// PendingQueue is the store of data waiting to be sent
type PendingQueue interface {
	List(ctx context.Context) ([]domain.PendingItem, error)
	Delete(ctx context.Context, id int64) error
}

// BackgroundSync delivers queued data once a "send-data" registration fires
type BackgroundSync struct {
	queue         PendingQueue
	client        *http.Client
	url           string
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	registrations chan struct{}
}

// NewBackgroundSync creates a new background syncer. interval 0 disables periodic flushes.
func NewBackgroundSync(
	queue PendingQueue,
	client *http.Client,
	url string,
	log logger.Logger,
	interval time.Duration,
) *BackgroundSync {
	if client == nil {
		client = http.DefaultClient
	}
	return &BackgroundSync{
		queue:         queue,
		client:        client,
		url:           url,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		registrations: make(chan struct{}, 1),
	}
}

// Register schedules a flush for tag. Registrations made before the
// previous one ran coalesce into one flush.
func (bs *BackgroundSync) Register(tag string) error {
	if tag != domain.SyncTagSendData {
		return fmt.Errorf("%w: %q", ErrUnknownSyncTag, tag)
	}
	select {
	case bs.registrations <- struct{}{}:
	default:
	}
	return nil
}

// Start flushes whatever a previous run left queued, then waits for registrations
func (bs *BackgroundSync) Start(ctx context.Context) error {
	if bs.url == "" {
		bs.logger.Warn("background sync disabled, no sync endpoint configured")
		return nil
	}

	if _, err := bs.Flush(ctx); err != nil {
		bs.logger.Warn("initial flush failed", logger.Error(err))
	}

	go func() {
		var tick <-chan time.Time
		if bs.interval > 0 {
			ticker := time.NewTicker(bs.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				bs.flushLogged(ctx)
			case <-bs.registrations:
				bs.logger.Debug("sync event", logger.String("tag", domain.SyncTagSendData))
				bs.flushLogged(ctx)
			case <-bs.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the syncer
func (bs *BackgroundSync) Stop() {
	close(bs.stopCh)
}

func (bs *BackgroundSync) flushLogged(ctx context.Context) {
	if _, err := bs.Flush(ctx); err != nil {
		bs.logger.Error("background sync failed, items stay queued", logger.Error(err))
	}
}

// Flush posts queued items oldest first, deleting each once accepted. It
// stops at the first failure and leaves the rest queued.
func (bs *BackgroundSync) Flush(ctx context.Context) (int, error) {
	if bs.url == "" {
		return 0, ErrNoSyncEndpoint
	}

	items, err := bs.queue.List(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, item := range items {
		if err := bs.Send(ctx, item); err != nil {
			return sent, err
		}
		if err := bs.queue.Delete(ctx, item.ID); err != nil {
			return sent, fmt.Errorf("failed to dequeue item %d: %w", item.ID, err)
		}
		sent++
	}

	if sent > 0 {
		bs.logger.Info("pending data synced", logger.Int("count", sent))
	}
	return sent, nil
}

// Send posts one item as JSON
func (bs *BackgroundSync) Send(ctx context.Context, item domain.PendingItem) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item %d: %w", item.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, bs.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := bs.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send item %d: %w", item.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sync endpoint answered %d for item %d", resp.StatusCode, item.ID)
	}
	return nil
}
