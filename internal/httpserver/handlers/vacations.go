package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tracker/internal/controller"
	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

type vacationRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func ListVacations(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := d.Vacations.View(r.Context())
		if err != nil {
			d.Logger.Error("failed to render vacations", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read vacations")
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// SubmitVacation accepts JSON or a classic form post (startDate, endDate).
func SubmitVacation(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req vacationRequest
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		} else {
			req.StartDate = r.FormValue("startDate")
			req.EndDate = r.FormValue("endDate")
		}

		view, err := d.Vacations.Submit(r.Context(), req.StartDate, req.EndDate)
		switch {
		case errors.Is(err, domain.ErrInvalidDates):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			d.Logger.Error("failed to store vacation", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store vacation")
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func DeleteVacation(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "index must be an integer")
			return
		}

		view, err := d.Vacations.Delete(r.Context(), index)
		switch {
		case errors.Is(err, controller.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			d.Logger.Error("failed to delete vacation", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to delete vacation")
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
