package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/mw"
)

func init() { Register(registerPending) }

func registerPending(r chi.Router, d deps.Deps) {
	if d.Pending == nil {
		return
	}
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), apiTimeout(d)).Post("/api/pending", handlers.SubmitPending(d))
}
