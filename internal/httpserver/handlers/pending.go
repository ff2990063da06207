package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/tracker/internal/controller"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/logger"
	"github.com/MrSnakeDoc/tracker/internal/scheduler"
)

type pendingRequest struct {
	Data string `json:"data"`
}

type pendingResponse struct {
	controller.SubmitResult
	Queued bool `json:"queued"`
}

// SubmitPending queues data for background sync. 202 means a sync will deliver it.
func SubmitPending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pendingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		res, err := d.Pending.Submit(r.Context(), req.Data)
		switch {
		case errors.Is(err, controller.ErrEmptyData):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, scheduler.ErrNoSyncEndpoint):
			// stored, nobody to send it to yet
			writeJSON(w, http.StatusAccepted, pendingResponse{SubmitResult: res, Queued: true})
		case err != nil && res.ID != 0:
			d.Logger.Warn("data stored but not sent", logger.Int64("id", res.ID), logger.Error(err))
			writeJSON(w, http.StatusAccepted, pendingResponse{SubmitResult: res, Queued: true})
		case err != nil:
			d.Logger.Error("failed to queue data", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to queue data")
		case res.Registered:
			writeJSON(w, http.StatusAccepted, pendingResponse{SubmitResult: res, Queued: true})
		default:
			writeJSON(w, http.StatusOK, pendingResponse{SubmitResult: res})
		}
	}
}
