package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/channel"
	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// JokeSource fetches one batch from the remote
type JokeSource interface {
	Fetch(ctx context.Context) ([]domain.Joke, error)
}

// JokeSaver persists a batch
type JokeSaver interface {
	SaveMany(ctx context.Context, jokes []domain.Joke) error
}

// JokeSync runs the worker side fetch, store and notify cycle
type JokeSync struct {
	source        JokeSource
	jokes         JokeSaver
	channel       channel.Channel
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	done          chan struct{}
	manualTrigger chan struct{}
}

// NewJokeSync creates a new joke syncer. interval 0 disables periodic refresh.
func NewJokeSync(
	source JokeSource,
	jokes JokeSaver,
	ch channel.Channel,
	log logger.Logger,
	interval time.Duration,
) *JokeSync {
	return &JokeSync{
		source:        source,
		jokes:         jokes,
		channel:       ch,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: make(chan struct{}, 1),
	}
}

// Trigger asks for a sync. Requests arriving while one is pending coalesce.
func (js *JokeSync) Trigger() {
	select {
	case js.manualTrigger <- struct{}{}:
	default:
	}
}

// Start listens for "fetch-jokes" on the channel and runs syncs on request
func (js *JokeSync) Start(ctx context.Context) error {
	router := channel.NewRouter(js.logger).
		On(domain.TagFetchJokes, func(context.Context) { js.Trigger() })

	if err := js.channel.Subscribe(ctx, router.Handler()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", js.channel.Name(), err)
	}

	js.done = make(chan struct{})
	go func() {
		defer close(js.done)
		var tick <-chan time.Time
		if js.interval > 0 {
			ticker := time.NewTicker(js.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				_ = js.Sync(ctx)
			case <-js.manualTrigger:
				js.logger.Info("joke fetch requested")
				_ = js.Sync(ctx)
			case <-js.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the syncer, waits for a running sync and closes its channel endpoint
func (js *JokeSync) Stop() {
	close(js.stopCh)
	if js.done != nil {
		<-js.done
	}
	if err := js.channel.Close(); err != nil {
		js.logger.Warn("failed to close channel", logger.String("channel", js.channel.Name()), logger.Error(err))
	}
}

// Sync fetches a batch, stores it and notifies. Any failure is reported
// with "fetch-error" and not retried.
func (js *JokeSync) Sync(ctx context.Context) error {
	jokes, err := js.source.Fetch(ctx)
	if err != nil {
		return js.fail(ctx, fmt.Errorf("failed to fetch jokes: %w", err))
	}

	if err := js.jokes.SaveMany(ctx, jokes); err != nil {
		return js.fail(ctx, fmt.Errorf("failed to store jokes: %w", err))
	}

	js.logger.Info("jokes stored", logger.Int("count", len(jokes)))
	js.notify(ctx, domain.TagDataUpdated)
	return nil
}

func (js *JokeSync) fail(ctx context.Context, err error) error {
	js.logger.Error("joke sync failed", logger.Error(err))
	js.notify(ctx, domain.TagFetchError)
	return err
}

func (js *JokeSync) notify(ctx context.Context, tag domain.Tag) {
	if err := js.channel.Send(ctx, tag); err != nil {
		js.logger.Warn("failed to send notification",
			logger.String("tag", string(tag)),
			logger.Error(err))
	}
}
