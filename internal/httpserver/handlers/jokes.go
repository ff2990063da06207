package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

func ListJokes(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := d.Jokes.View(r.Context())
		if err != nil {
			d.Logger.Error("failed to render jokes", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read jokes")
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// FetchJokes asks the worker for fresh jokes. The list updates once
// "data-updated" comes back, so the answer is 202 with the current view.
func FetchJokes(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Jokes.RequestFetch(r.Context()); err != nil {
			d.Logger.Warn("fetch request not delivered", logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "worker unreachable")
			return
		}
		d.Logger.Info("jokes fetch requested",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, d.Jokes.Last())
	}
}

func DeleteJoke(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be an integer")
			return
		}

		view, err := d.Jokes.Delete(r.Context(), id)
		if err != nil {
			d.Logger.Error("failed to delete joke", logger.Int64("id", id), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to delete joke")
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
