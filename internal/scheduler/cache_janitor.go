package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// GenerationSweeper drops every cache generation but the current one
type GenerationSweeper interface {
	Sweep(ctx context.Context) ([]string, error)
}

// StrayCleaner finds and drops generation data left unregistered
type StrayCleaner interface {
	StrayGenerations(ctx context.Context) ([]string, error)
	DropStray(ctx context.Context, name string) error
}

// CacheJanitor re-checks that only the current generation is kept, catching
// generations other processes created after activation
type CacheJanitor struct {
	sweeper  GenerationSweeper
	strays   StrayCleaner
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCacheJanitor creates a new janitor. strays may be nil.
func NewCacheJanitor(
	sweeper GenerationSweeper,
	strays StrayCleaner,
	log logger.Logger,
	interval time.Duration,
) *CacheJanitor {
	return &CacheJanitor{
		sweeper:  sweeper,
		strays:   strays,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (cj *CacheJanitor) Start(ctx context.Context) error {
	if cj.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(cj.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := cj.Collect(ctx); err != nil {
					cj.logger.Error("cache sweep failed",
						logger.Error(err))
				}
			case <-cj.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the janitor
func (cj *CacheJanitor) Stop() {
	close(cj.stopCh)
}

// Collect removes stale generations and stray generation data
func (cj *CacheJanitor) Collect(ctx context.Context) error {
	purged, err := cj.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}

	dropped := 0
	if cj.strays != nil {
		names, err := cj.strays.StrayGenerations(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := cj.strays.DropStray(ctx, name); err != nil {
				cj.logger.Warn("failed to drop stray generation",
					logger.String("generation", name),
					logger.Error(err))
				continue
			}
			dropped++
		}
	}

	if len(purged) > 0 || dropped > 0 {
		cj.logger.Info("cache sweep completed",
			logger.Strings("purged", purged),
			logger.Int("strays_dropped", dropped))
	} else {
		cj.logger.Debug("no stale generations")
	}

	return nil
}
