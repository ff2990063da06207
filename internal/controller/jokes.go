package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/tracker/internal/channel"
	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// Status messages shown next to the joke list.
const (
	StatusFetching    = "Fetching jokes..."
	StatusFetchFailed = "Could not fetch jokes. Try again later."
)

// JokeStore is the page side view of the joke collection.
type JokeStore interface {
	List(ctx context.Context) ([]domain.Joke, error)
	Delete(ctx context.Context, id int64) error
}

// Jokes is the joke tracker page.
type Jokes struct {
	store   JokeStore
	channel channel.Channel
	log     logger.Logger

	mu     sync.Mutex
	status string
	view   domain.JokesView
}

// NewJokes creates the joke controller on its own channel endpoint.
func NewJokes(store JokeStore, ch channel.Channel, log logger.Logger) *Jokes {
	return &Jokes{store: store, channel: ch, log: log}
}

// Start renders once and reacts to worker notifications until ctx ends.
func (j *Jokes) Start(ctx context.Context) error {
	router := channel.NewRouter(j.log).
		On(domain.TagDataUpdated, func(ctx context.Context) {
			j.setStatus("")
			if _, err := j.View(ctx); err != nil {
				j.log.Error("failed to rebuild jokes", logger.Error(err))
			}
		}).
		On(domain.TagFetchError, func(context.Context) {
			j.setStatus(StatusFetchFailed)
		})

	if err := j.channel.Subscribe(ctx, router.Handler()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", j.channel.Name(), err)
	}

	_, err := j.View(ctx)
	return err
}

// View rebuilds the view from storage, in insertion (key) order.
func (j *Jokes) View(ctx context.Context) (domain.JokesView, error) {
	jokes, err := j.store.List(ctx)
	if err != nil {
		return domain.JokesView{}, err
	}
	if jokes == nil {
		jokes = []domain.Joke{}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.view = domain.JokesView{Jokes: jokes, Status: j.status}
	return j.view, nil
}

// Last returns the view as last rebuilt.
func (j *Jokes) Last() domain.JokesView {
	j.mu.Lock()
	defer j.mu.Unlock()

	v := j.view
	v.Status = j.status
	return v
}

// Delete removes a joke by its id and rebuilds the view.
func (j *Jokes) Delete(ctx context.Context, id int64) (domain.JokesView, error) {
	if err := j.store.Delete(ctx, id); err != nil {
		return domain.JokesView{}, fmt.Errorf("failed to delete joke %d: %w", id, err)
	}
	return j.View(ctx)
}

// RequestFetch asks the worker to refresh jokes. The answer arrives later
// as "data-updated" or "fetch-error".
func (j *Jokes) RequestFetch(ctx context.Context) error {
	// set before sending: the answer may arrive before Send returns
	prev := j.swapStatus(StatusFetching)
	if err := j.channel.Send(ctx, domain.TagFetchJokes); err != nil {
		j.setStatus(prev)
		return fmt.Errorf("failed to request jokes: %w", err)
	}
	return nil
}

func (j *Jokes) setStatus(s string) {
	j.swapStatus(s)
}

func (j *Jokes) swapStatus(s string) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	prev := j.status
	j.status = s
	return prev
}
