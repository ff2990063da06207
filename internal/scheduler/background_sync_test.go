package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

type memoryQueue struct {
	mu    sync.Mutex
	items []domain.PendingItem
}

func (q *memoryQueue) List(context.Context) ([]domain.PendingItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.PendingItem(nil), q.items...), nil
}

func (q *memoryQueue) Delete(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.items {
		if it.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	return nil
}

func (q *memoryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func syncEndpoint(t *testing.T, failFrom int) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu       sync.Mutex
		received []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var item domain.PendingItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if failFrom > 0 && len(received) >= failFrom {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		received = append(received, item.Data)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func queued(data ...string) *memoryQueue {
	q := &memoryQueue{}
	for i, d := range data {
		q.items = append(q.items, domain.PendingItem{ID: int64(i + 1), Data: d})
	}
	return q
}

func TestFlushSendsAndDequeues(t *testing.T) {
	srv, received := syncEndpoint(t, 0)
	q := queued("a", "b", "c")
	bs := NewBackgroundSync(q, srv.Client(), srv.URL, logger.Nop(), 0)

	sent, err := bs.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if sent != 3 || q.len() != 0 {
		t.Errorf("Flush() sent %d, %d left queued; want 3 sent, 0 left", sent, q.len())
	}
	if got := *received; len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("endpoint received %v", got)
	}
}

func TestFlushStopsAtFirstFailure(t *testing.T) {
	srv, _ := syncEndpoint(t, 1)
	q := queued("a", "b", "c")
	bs := NewBackgroundSync(q, srv.Client(), srv.URL, logger.Nop(), 0)

	sent, err := bs.Flush(context.Background())
	if err == nil {
		t.Fatal("Flush() should fail once the endpoint rejects")
	}
	if sent != 1 || q.len() != 2 {
		t.Errorf("Flush() sent %d, %d left queued; want 1 sent, 2 left", sent, q.len())
	}
}

func TestFlushWithoutEndpoint(t *testing.T) {
	bs := NewBackgroundSync(queued("a"), nil, "", logger.Nop(), 0)
	if _, err := bs.Flush(context.Background()); !errors.Is(err, ErrNoSyncEndpoint) {
		t.Errorf("Flush() error = %v, want ErrNoSyncEndpoint", err)
	}
}

func TestRegisterTriggersFlush(t *testing.T) {
	srv, _ := syncEndpoint(t, 0)
	q := &memoryQueue{}
	bs := NewBackgroundSync(q, srv.Client(), srv.URL, logger.Nop(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := bs.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bs.Stop()

	q.mu.Lock()
	q.items = append(q.items, domain.PendingItem{ID: 1, Data: "queued later"})
	q.mu.Unlock()

	if err := bs.Register(domain.SyncTagSendData); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for q.len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if q.len() != 0 {
		t.Error("registration did not flush the queue")
	}
}

func TestRegisterUnknownTag(t *testing.T) {
	bs := NewBackgroundSync(&memoryQueue{}, nil, "http://sync.local", logger.Nop(), 0)
	if err := bs.Register("sync-photos"); !errors.Is(err, ErrUnknownSyncTag) {
		t.Errorf("Register() error = %v, want ErrUnknownSyncTag", err)
	}
}
