package channel

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// Router dispatches tags on equality. Unknown tags are logged and ignored.
type Router struct {
	log logger.Logger

	mu     sync.RWMutex
	routes map[domain.Tag]func(ctx context.Context)
}

// NewRouter creates an empty router.
func NewRouter(log logger.Logger) *Router {
	if log == nil {
		log = logger.Nop()
	}
	return &Router{log: log, routes: make(map[domain.Tag]func(context.Context))}
}

// On registers fn for tag, replacing any previous route.
func (r *Router) On(tag domain.Tag, fn func(ctx context.Context)) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[tag] = fn
	return r
}

// Dispatch runs the route for tag.
func (r *Router) Dispatch(ctx context.Context, tag domain.Tag) {
	r.mu.RLock()
	fn, ok := r.routes[tag]
	r.mu.RUnlock()

	if !ok {
		r.log.Info("ignoring message", logger.String("tag", string(tag)))
		return
	}
	fn(ctx)
}

// Handler adapts the router to Channel.Subscribe.
func (r *Router) Handler() Handler {
	return r.Dispatch
}
