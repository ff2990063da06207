package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// keepAlive is how often an idle stream gets a comment line.
const keepAlive = 25 * time.Second

// Events streams known channel notifications as server-sent events. Every client
// gets its own endpoint, so it sees what the worker and other pages send
// from the moment it connects, and nothing from before.
func Events(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		ch, err := d.Broker.Open(ctx, d.ChannelName)
		if err != nil {
			d.Logger.Error("failed to open channel", logger.String("channel", d.ChannelName), logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "channel unavailable")
			return
		}
		defer func() { _ = ch.Close() }()

		tags := make(chan domain.Tag, 16)
		err = ch.Subscribe(ctx, func(_ context.Context, tag domain.Tag) {
			// tags are written verbatim into event lines
			if !domain.IsKnownTag(tag) {
				d.Logger.Warn("ignoring unknown channel tag", logger.String("tag", fmt.Sprintf("%q", tag)))
				return
			}
			select {
			case tags <- tag:
			default:
				d.Logger.Warn("event stream too slow, dropping", logger.String("tag", string(tag)))
			}
		})
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "channel unavailable")
			return
		}

		rc := http.NewResponseController(w)
		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-store")
		h.Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			d.Logger.Warn("event stream not flushable", logger.Error(err))
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case tag := <-tags:
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", tag, tag); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
