package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/mw"
)

func init() { Register(registerEvents) }

func registerEvents(r chi.Router, d deps.Deps) {
	if d.Broker == nil {
		return
	}
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger)).Get("/api/events", handlers.Events(d))
}
