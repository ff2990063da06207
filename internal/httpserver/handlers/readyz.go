package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/worker"
)

type readyzResponse struct {
	Ready  bool     `json:"ready"`
	Failed []string `json:"failed,omitempty"`
}

// Readyz is ready once the worker is activated and every store answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var failed []string
		if d.Worker == nil || d.Worker.State() != worker.StateActivated {
			failed = append(failed, "worker")
		}
		for _, db := range d.Databases {
			if err := db.Ping(ctx); err != nil {
				failed = append(failed, db.Name())
			}
		}
		if d.RedisClient != nil {
			if err := d.RedisClient.Ping(ctx).Err(); err != nil {
				failed = append(failed, "redis")
			}
		}

		status := http.StatusOK
		if len(failed) > 0 {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: len(failed) == 0, Failed: failed})
	}
}
