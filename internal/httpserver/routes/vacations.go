package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/mw"
)

func init() { Register(registerVacations) }

func registerVacations(r chi.Router, d deps.Deps) {
	if d.Vacations == nil {
		return
	}
	r.Route("/api/vacations", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger), apiTimeout(d))
		r.Get("/", handlers.ListVacations(d))
		r.Post("/", handlers.SubmitVacation(d))
		r.Delete("/{index}", handlers.DeleteVacation(d))
	})
}
