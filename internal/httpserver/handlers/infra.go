package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/worker"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type workerStatus struct {
	State       string       `json:"state"`
	Generation  string       `json:"generation"`
	Claimed     bool         `json:"claimed"`
	Generations []string     `json:"generations"`
	Stats       worker.Stats `json:"stats"`
	Error       string       `json:"error,omitempty"`
}

type databaseStatus struct {
	Name    string   `json:"name"`
	Version int      `json:"version"`
	Stores  []string `json:"stores"`
	OK      bool     `json:"ok"`
}

type infraResponse struct {
	Mode      string           `json:"mode"`
	Worker    *workerStatus    `json:"worker,omitempty"`
	Databases []databaseStatus `json:"databases"`
	Redis     componentStatus  `json:"redis"`
	Channel   string           `json:"channel"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := infraResponse{
			Worker:    checkWorker(ctx, d),
			Databases: checkDatabases(ctx, d),
			Redis:     checkRedis(ctx, d),
			Channel:   d.ChannelName,
		}
		resp.Mode = determineMode(resp)

		writeJSON(w, http.StatusOK, resp)
	}
}

func determineMode(resp infraResponse) string {
	// Without an active worker nothing is served offline
	if resp.Worker == nil || resp.Worker.State != worker.StateActivated.String() {
		return "critical"
	}
	for _, db := range resp.Databases {
		if !db.OK {
			return "critical"
		}
	}

	// Redis down only loses cross-process notifications
	if resp.Redis.Mode == "shared" && !resp.Redis.OK {
		return "degraded"
	}

	return "offline-ready"
}

func checkWorker(ctx context.Context, d deps.Deps) *workerStatus {
	if d.Worker == nil {
		return nil
	}
	st := &workerStatus{
		State:      d.Worker.State().String(),
		Generation: d.Worker.Generation(),
		Claimed:    d.Worker.Claimed(),
		Stats:      d.Worker.Stats(),
	}
	gens, err := d.Worker.Generations(ctx)
	if err != nil {
		st.Error = err.Error()
	}
	st.Generations = gens
	return st
}

func checkDatabases(ctx context.Context, d deps.Deps) []databaseStatus {
	out := make([]databaseStatus, 0, len(d.Databases))
	for _, db := range d.Databases {
		out = append(out, databaseStatus{
			Name:    db.Name(),
			Version: db.Version(),
			Stores:  db.StoreNames(),
			OK:      db.Ping(ctx) == nil,
		})
	}
	return out
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "local",
			Impact: "notifications-in-process-only",
		}
	}

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "shared",
			Impact: "cross-process-notifications-lost",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "shared",
		Impact: "cross-process-notifications",
	}
}
